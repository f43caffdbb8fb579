// mailer определяет контракт отправки писем и реализацию поверх Resend API.
// Сервисный слой знает только интерфейс Mailer; сбой доставки не должен
// откатывать уже сохранённое состояние (см. service.RequestPasswordReset).
package mailer

import "context"

// Mailer — контракт исходящей почты.
type Mailer interface {
	// Send отправляет письмо; ошибка означает, что письмо не принято
	// к доставке. Ошибка намеренно не детализируется до кода провайдера.
	Send(ctx context.Context, to, subject, html string) error
}
