package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"ninamar-service/internal/email"
	"ninamar-service/internal/models"
	"ninamar-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Sender delivers one email
type Sender interface {
	Send(ctx context.Context, msg *email.Message) (string, error)
}

// MailerConfig holds the addresses and links rendered into emails
type MailerConfig struct {
	AdminEmail string
	SiteURL    string
	APIURL     string
}

// DeliveryLog remembers which emails of an event were already sent
type DeliveryLog interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// Mailer turns notification events into emails
type Mailer struct {
	sender     Sender
	cfg        MailerConfig
	templates  *template.Template
	deliveries DeliveryLog
	logger     *zap.Logger
}

var printer = message.NewPrinter(language.Spanish)

// FormatMoney renders an amount in whole pesos
func FormatMoney(d decimal.Decimal) string {
	return printer.Sprintf("$%d", d.Round(0).IntPart())
}

func formatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// NewMailer parses the embedded templates
func NewMailer(sender Sender, cfg MailerConfig) (*Mailer, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"money": FormatMoney,
		"date":  formatDate,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return &Mailer{sender: sender, cfg: cfg, templates: tmpl, logger: util.Named("mailer")}, nil
}

// WithDeliveryLog returns a mailer that sends each email of an event at most
// once, so a redelivered event only retries the emails that failed.
func (m *Mailer) WithDeliveryLog(log DeliveryLog) *Mailer {
	dup := *m
	dup.deliveries = log
	return &dup
}

// Publish delivers the event directly, making the mailer a Sink
func (m *Mailer) Publish(ctx context.Context, event *models.NotificationEvent) error {
	return m.Deliver(ctx, event)
}

// Deliver sends every email the event calls for
func (m *Mailer) Deliver(ctx context.Context, event *models.NotificationEvent) error {
	ctx, span := util.StartSpanWith(ctx, "Mailer.Deliver", "event_type", event.EventType)
	defer span.End()

	var err error
	switch event.EventType {
	case models.EventTypeOrderCreated:
		err = m.orderCreated(ctx, event)
	case models.EventTypeOrderStatusChanged:
		err = m.orderStatusChanged(ctx, event)
	case models.EventTypeNewsletterSubscribed:
		err = m.newsletterSubscribed(ctx, event)
	case models.EventTypeContactReceived:
		err = m.contactReceived(ctx, event)
	default:
		m.logger.Warn("Unhandled event type", zap.String("event_type", event.EventType))
	}
	util.RecordError(span, err)
	return err
}

type orderData struct {
	Order    *models.Order
	Items    []models.OrderItem
	Shipment *models.Shipment
	Headline string
	TrackURL string
	AdminURL string
}

func (m *Mailer) orderData(event *models.NotificationEvent) orderData {
	o := event.Order
	return orderData{
		Order:    o,
		Items:    event.Items,
		Shipment: event.Shipment,
		TrackURL: fmt.Sprintf("%s/seguimiento?pedido=%s&email=%s",
			m.cfg.SiteURL, url.QueryEscape(o.OrderNumber), url.QueryEscape(o.CustomerEmail)),
		AdminURL: fmt.Sprintf("%s/admin/pedidos/%s", m.cfg.SiteURL, o.ID),
	}
}

func (m *Mailer) orderCreated(ctx context.Context, event *models.NotificationEvent) error {
	if event.Order == nil {
		return errors.New("order created event without order")
	}
	data := m.orderData(event)

	customerErr := m.send(ctx, event, "order_confirmation.html", data, &email.Message{
		To:      []string{event.Order.CustomerEmail},
		Subject: fmt.Sprintf("Confirmación de tu pedido %s", event.Order.OrderNumber),
	})
	if m.cfg.AdminEmail == "" {
		return customerErr
	}
	adminErr := m.send(ctx, event, "order_admin.html", data, &email.Message{
		To:      []string{m.cfg.AdminEmail},
		Subject: fmt.Sprintf("Nuevo pedido %s · %s", event.Order.OrderNumber, FormatMoney(event.Order.Total)),
		ReplyTo: event.Order.CustomerEmail,
	})
	return errors.Join(customerErr, adminErr)
}

var statusHeadlines = map[models.OrderStatus]struct{ subject, headline string }{
	models.OrderStatusProcessing: {"Estamos preparando tu pedido %s", "Tu pedido está en preparación. Lo estamos haciendo a mano, con mucho cariño."},
	models.OrderStatusShipped:    {"Tu pedido %s va en camino", "¡Tu pedido fue enviado!"},
	models.OrderStatusDelivered:  {"Tu pedido %s fue entregado", "Tu pedido fue entregado. Esperamos que lo disfrutes."},
}

func (m *Mailer) orderStatusChanged(ctx context.Context, event *models.NotificationEvent) error {
	if event.Order == nil {
		return errors.New("status event without order")
	}
	text, ok := statusHeadlines[event.Order.Status]
	if !ok {
		m.logger.Debug("No status email for status", zap.String("status", event.Order.Status.String()))
		return nil
	}
	data := m.orderData(event)
	data.Headline = text.headline

	return m.send(ctx, event, "order_status.html", data, &email.Message{
		To:      []string{event.Order.CustomerEmail},
		Subject: fmt.Sprintf(text.subject, event.Order.OrderNumber),
	})
}

// UnsubscribeURL is the one-click unsubscribe link of a subscriber
func (m *Mailer) UnsubscribeURL(sub *models.NewsletterSubscriber) string {
	return fmt.Sprintf("%s/api/v1/newsletter/unsubscribe?token=%s", m.cfg.APIURL, url.QueryEscape(sub.Token))
}

func (m *Mailer) unsubscribeHeaders(sub *models.NewsletterSubscriber) map[string]string {
	return map[string]string{
		"List-Unsubscribe":      "<" + m.UnsubscribeURL(sub) + ">",
		"List-Unsubscribe-Post": "List-Unsubscribe=One-Click",
	}
}

func (m *Mailer) newsletterSubscribed(ctx context.Context, event *models.NotificationEvent) error {
	sub := event.Subscriber
	if sub == nil {
		return errors.New("subscription event without subscriber")
	}
	data := struct {
		Subscriber     *models.NewsletterSubscriber
		UnsubscribeURL string
	}{sub, m.UnsubscribeURL(sub)}

	return m.send(ctx, event, "newsletter_welcome.html", data, &email.Message{
		To:      []string{sub.Email},
		Subject: "Bienvenida al newsletter de Niñamar",
		Headers: m.unsubscribeHeaders(sub),
	})
}

// SendCampaign sends one newsletter campaign email. body is trusted admin HTML.
func (m *Mailer) SendCampaign(ctx context.Context, sub *models.NewsletterSubscriber, subject, body string) error {
	data := struct {
		Body           template.HTML
		UnsubscribeURL string
	}{template.HTML(body), m.UnsubscribeURL(sub)}

	return m.send(ctx, nil, "campaign.html", data, &email.Message{
		To:      []string{sub.Email},
		Subject: subject,
		Headers: m.unsubscribeHeaders(sub),
	})
}

func (m *Mailer) contactReceived(ctx context.Context, event *models.NotificationEvent) error {
	c := event.Contact
	if c == nil {
		return errors.New("contact event without message")
	}
	data := struct{ Contact *models.ContactMessage }{c}

	subject := "Nuevo mensaje de contacto"
	if c.Subject != "" {
		subject += ": " + c.Subject
	}

	var adminErr error
	if m.cfg.AdminEmail != "" {
		adminErr = m.send(ctx, event, "contact_admin.html", data, &email.Message{
			To:      []string{m.cfg.AdminEmail},
			Subject: subject,
			ReplyTo: c.Email,
		})
	}
	ackErr := m.send(ctx, event, "contact_ack.html", data, &email.Message{
		To:      []string{c.Email},
		Subject: "Recibimos tu mensaje",
	})
	return errors.Join(adminErr, ackErr)
}

func (m *Mailer) send(ctx context.Context, event *models.NotificationEvent, tmpl string, data interface{}, msg *email.Message) error {
	key := ""
	if m.deliveries != nil && event != nil {
		key = event.EventID + ":" + strings.TrimSuffix(tmpl, ".html")
		sent, err := m.deliveries.IsEventProcessed(ctx, key)
		if err != nil {
			return fmt.Errorf("check delivery %s: %w", key, err)
		}
		if sent {
			m.logger.Debug("Email already sent, skipping", zap.String("delivery", key))
			return nil
		}
	}

	var buf bytes.Buffer
	if err := m.templates.ExecuteTemplate(&buf, tmpl, data); err != nil {
		return fmt.Errorf("render %s: %w", tmpl, err)
	}
	msg.HTML = buf.String()

	id, err := m.sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("send %s to %s: %w", tmpl, strings.Join(msg.To, ","), err)
	}

	util.EmailsSentTotal.WithLabelValues(strings.TrimSuffix(tmpl, ".html")).Inc()
	m.logger.Info("Email sent",
		zap.String("template", tmpl),
		zap.String("delivery_id", id))

	if key != "" {
		if err := m.deliveries.MarkEventProcessed(ctx, key, event.EventType); err != nil {
			m.logger.Error("Failed to record email delivery", zap.String("delivery", key), zap.Error(err))
		}
	}
	return nil
}
