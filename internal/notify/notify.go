// Package notify delivers push notifications to post authors when someone
// likes or comments on their posts.
package notify

import (
	"context"
	"fmt"
	"log"
	"sync"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

const (
	KindLike    = "like"
	KindComment = "comment"
)

type Notification struct {
	Kind        string
	RecipientID string
	ActorName   string
	PostID      string
	PostTitle   string
}

// Topic each user's devices subscribe to.
func Topic(userID string) string {
	return "user-" + userID
}

func (n Notification) title() string {
	switch n.Kind {
	case KindLike:
		return "새로운 좋아요"
	case KindComment:
		return "새로운 댓글"
	default:
		return "알림"
	}
}

func (n Notification) body() string {
	switch n.Kind {
	case KindLike:
		return fmt.Sprintf("%s님이 '%s' 글을 좋아합니다", n.ActorName, n.PostTitle)
	case KindComment:
		return fmt.Sprintf("%s님이 '%s' 글에 댓글을 남겼습니다", n.ActorName, n.PostTitle)
	default:
		return n.PostTitle
	}
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Sender is the part of the FCM messaging client used here.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCM sends notifications through Firebase Cloud Messaging. The Firebase app
// is initialized on first use.
type FCM struct {
	credentialsPath string

	once    sync.Once
	sender  Sender
	initErr error
}

func NewFCM(credentialsPath string) *FCM {
	return &FCM{credentialsPath: credentialsPath}
}

// NewFCMWithSender uses an already initialized sender.
func NewFCMWithSender(s Sender) *FCM {
	f := &FCM{sender: s}
	f.once.Do(func() {})
	return f
}

func (f *FCM) init(ctx context.Context) error {
	f.once.Do(func() {
		log.Printf("[FCM] Initializing Firebase with credentials: %s", f.credentialsPath)

		app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(f.credentialsPath))
		if err != nil {
			f.initErr = fmt.Errorf("failed to init firebase app: %w", err)
			log.Printf("[FCM][ERROR] %v", f.initErr)
			return
		}
		client, err := app.Messaging(ctx)
		if err != nil {
			f.initErr = fmt.Errorf("failed to get messaging client: %w", err)
			log.Printf("[FCM][ERROR] %v", f.initErr)
			return
		}
		f.sender = client
		log.Println("[FCM] Firebase Messaging client initialized successfully")
	})
	return f.initErr
}

func (f *FCM) Notify(ctx context.Context, n Notification) error {
	if n.RecipientID == "" {
		return nil
	}
	if err := f.init(ctx); err != nil {
		return err
	}

	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title: n.title(),
			Body:  n.body(),
		},
		Data: map[string]string{
			"type":    n.Kind,
			"post_id": n.PostID,
		},
		Topic: Topic(n.RecipientID),
	}

	id, err := f.sender.Send(ctx, message)
	if err != nil {
		log.Printf("[FCM][ERROR] Failed to notify %s: %v", n.RecipientID, err)
		return err
	}
	log.Printf("[FCM] Sent %s notification for post %s: %s", n.Kind, n.PostID, id)
	return nil
}

// LogNotifier only logs. Used when Firebase is not configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	log.Printf("[notify] %s for user %s on post %s", n.Kind, n.RecipientID, n.PostID)
	return nil
}
