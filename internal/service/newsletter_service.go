package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"ninamar-service/internal/models"
	"ninamar-service/internal/store"
	"ninamar-service/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultCampaignBatch bounds concurrent campaign sends
const DefaultCampaignBatch = 10

// NewsletterService manages the mailing list and the contact form
type NewsletterService struct {
	store    NewsletterStore
	notifier Notifier
	sender   CampaignSender
	batch    int
	logger   *zap.Logger
}

// NewNewsletterService creates a new newsletter service
func NewNewsletterService(store NewsletterStore, notifier Notifier, sender CampaignSender, batch int) *NewsletterService {
	if batch <= 0 {
		batch = DefaultCampaignBatch
	}
	return &NewsletterService{
		store:    store,
		notifier: notifier,
		sender:   sender,
		batch:    batch,
		logger:   util.Named("newsletter"),
	}
}

// CampaignRequest is a newsletter issue to send to every active subscriber
type CampaignRequest struct {
	Subject string `json:"subject" validate:"required"`
	HTML    string `json:"html" validate:"required"`
}

// CampaignResult counts delivered and failed campaign emails
type CampaignResult struct {
	Recipients int `json:"recipients"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}

func normalizeEmail(field, raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if err := checkVar(field, email, "required,email,max=254"); err != nil {
		return "", err
	}
	return email, nil
}

// Subscribe adds an address to the mailing list, re-subscribing it if it had left
func (ns *NewsletterService) Subscribe(ctx context.Context, rawEmail string, name *string) (*models.NewsletterSubscriber, error) {
	email, err := normalizeEmail("email", rawEmail)
	if err != nil {
		return nil, err
	}
	if name != nil {
		if n := strings.TrimSpace(*name); n != "" {
			name = &n
		} else {
			name = nil
		}
	}

	sub, err := ns.store.UpsertSubscriber(ctx, email, name)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	ns.logger.Info("Newsletter subscription", zap.String("subscriber_id", sub.ID.String()))

	ns.notifier.NewsletterSubscribed(ctx, sub)
	return sub, nil
}

// Unsubscribe removes the subscriber owning token from the mailing list
func (ns *NewsletterService) Unsubscribe(ctx context.Context, token string) (*models.NewsletterSubscriber, error) {
	token = strings.TrimSpace(token)
	if err := checkVar("token", token, "required"); err != nil {
		return nil, err
	}
	sub, err := ns.store.Unsubscribe(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSubscriberNotFound
		}
		return nil, fmt.Errorf("failed to unsubscribe: %w", err)
	}
	ns.logger.Info("Newsletter unsubscription", zap.String("subscriber_id", sub.ID.String()))
	return sub, nil
}

// ListSubscribers returns the mailing list
func (ns *NewsletterService) ListSubscribers(ctx context.Context, activeOnly bool) ([]models.NewsletterSubscriber, error) {
	return ns.store.ListSubscribers(ctx, activeOnly)
}

// SendCampaign mails a newsletter issue to every active subscriber. Individual
// failures are counted, not returned.
func (ns *NewsletterService) SendCampaign(ctx context.Context, req CampaignRequest) (*CampaignResult, error) {
	ctx, span := util.StartSpan(ctx, "NewsletterService.SendCampaign")
	defer span.End()

	req.Subject = strings.TrimSpace(req.Subject)
	if err := checkStruct("", CampaignRequest{Subject: req.Subject, HTML: strings.TrimSpace(req.HTML)}); err != nil {
		return nil, err
	}

	subs, err := ns.store.ListSubscribers(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}

	var sent, failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(ns.batch)
	for i := range subs {
		sub := &subs[i]
		g.Go(func() error {
			if err := ns.sender.SendCampaign(ctx, sub, req.Subject, req.HTML); err != nil {
				failed.Add(1)
				util.CampaignRecipientsTotal.WithLabelValues("failed").Inc()
				ns.logger.Warn("Campaign email failed",
					zap.String("subscriber_id", sub.ID.String()), zap.Error(err))
				return nil
			}
			sent.Add(1)
			util.CampaignRecipientsTotal.WithLabelValues("sent").Inc()
			return nil
		})
	}
	_ = g.Wait()

	result := &CampaignResult{Recipients: len(subs), Sent: int(sent.Load()), Failed: int(failed.Load())}
	ns.logger.Info("Campaign sent",
		zap.String("subject", req.Subject),
		zap.Int("recipients", result.Recipients),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))
	return result, nil
}

// SubmitContact relays a contact form submission
func (ns *NewsletterService) SubmitContact(ctx context.Context, msg *models.ContactMessage) error {
	relayed := *msg
	relayed.Name = strings.TrimSpace(msg.Name)
	relayed.Email = strings.ToLower(strings.TrimSpace(msg.Email))
	relayed.Phone = strings.TrimSpace(msg.Phone)
	relayed.Subject = strings.TrimSpace(msg.Subject)
	relayed.Message = strings.TrimSpace(msg.Message)
	if err := checkStruct("", &relayed); err != nil {
		return err
	}

	ns.logger.Info("Contact message received", zap.String("subject", relayed.Subject))
	ns.notifier.ContactReceived(ctx, &relayed)
	return nil
}
