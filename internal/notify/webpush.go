package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"github.com/PhilippVn/ZHS-Scraper/config"
)

// PushDispatcher defines the interface for sending a web push message.
type PushDispatcher interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// webPushDispatcher is the real implementation using the webpush library.
type webPushDispatcher struct{}

func (d *webPushDispatcher) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WebPushSender fans a notification out to the statically configured Web
// Push subscriptions.
type WebPushSender struct {
	options    *webpush.Options
	subs       []config.PushSubscription
	dispatcher PushDispatcher
}

// NewWebPushSender creates a push sender from the push configuration.
func NewWebPushSender(cfg config.PushConfig) *WebPushSender {
	return &WebPushSender{
		options: &webpush.Options{
			VAPIDPublicKey:  cfg.PublicKey,
			VAPIDPrivateKey: cfg.PrivateKey,
			Subscriber:      cfg.Subject,
			TTL:             cfg.TTL,
		},
		subs:       cfg.Subscriptions,
		dispatcher: &webPushDispatcher{},
	}
}

// pushPayload is the JSON body a service worker receives.
type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Send pushes the plain rendering to every subscription. Failed endpoints
// are logged and skipped; an expired subscription (410) only warns, since
// the subscription list is static configuration.
func (s *WebPushSender) Send(_ context.Context, msg Message) error {
	payload, err := json.Marshal(pushPayload{Title: msg.Subject, Body: msg.Plain})
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	var failed int
	for _, sub := range s.subs {
		wpSub := &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256DH,
				Auth:   sub.Auth,
			},
		}

		resp, err := s.dispatcher.Send(payload, wpSub, s.options)
		if err != nil {
			log.Printf("Error sending push notification to %s: %v", sub.Endpoint, err)
			failed++
			continue
		}
		if resp.StatusCode == http.StatusGone {
			log.Printf("Push subscription %s is expired; remove it from the configuration.", sub.Endpoint)
		}
		resp.Body.Close()
	}

	if failed > 0 && failed == len(s.subs) {
		return fmt.Errorf("all %d push subscriptions failed", failed)
	}
	return nil
}
