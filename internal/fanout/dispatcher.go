package fanout

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gustavohdab/rettiwt-backend/internal/models"
	"github.com/gustavohdab/rettiwt-backend/internal/notifications"
	"github.com/gustavohdab/rettiwt-backend/internal/observability"
	"github.com/gustavohdab/rettiwt-backend/internal/repository"
)

// Pusher delivers realtime events. *notifications.Notifier satisfies it.
type Pusher interface {
	PublishUser(ctx context.Context, userID uint, event string, payload any) error
	PublishBroadcast(ctx context.Context, event string, payload any) error
}

// Sink accepts events for asynchronous processing. Services emit through it
// so the write path never waits on notification or trend work.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

const deliverTimeout = 5 * time.Second

// Dispatcher fans events out to notification rows and realtime pushes.
type Dispatcher struct {
	notifRepo repository.NotificationRepository
	pusher    Pusher

	// onContent runs after every stored tweet (trend refresh hook).
	onContent func(ctx context.Context)

	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher persisting through notifRepo and
// pushing through pusher.
func NewDispatcher(notifRepo repository.NotificationRepository, pusher Pusher) *Dispatcher {
	return &Dispatcher{notifRepo: notifRepo, pusher: pusher}
}

// OnContent registers fn to run after every stored tweet. The trends service
// hooks its recompute-and-broadcast here at wiring time.
func (d *Dispatcher) OnContent(fn func(ctx context.Context)) {
	d.onContent = fn
}

// Emit schedules the event for background delivery and returns immediately.
func (d *Dispatcher) Emit(_ context.Context, event Event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in %s fanout: %v\n%s", event.kind(), r, debug.Stack())
			}
		}()

		// The request context ends with the response; deliveries get their own.
		ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		defer cancel()
		d.dispatch(ctx, event)
	}()
}

// Drain waits for in-flight deliveries, up to ctx's deadline.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, event Event) {
	switch e := event.(type) {
	case TweetCreated:
		d.tweetCreated(ctx, e)
	case TweetLiked:
		d.deliver(ctx, notification(models.NotificationLike, e.Actor, e.Tweet.AuthorID, e.Tweet))
	case TweetRetweeted:
		d.deliver(ctx, notification(models.NotificationRetweet, e.Actor, e.Tweet.AuthorID, e.Tweet))
	case Followed:
		d.followed(ctx, e)
	case Unfollowed:
		d.unfollowed(ctx, e)
	default:
		log.Printf("fanout: unhandled event %q", event.kind())
	}
}

func (d *Dispatcher) tweetCreated(ctx context.Context, e TweetCreated) {
	// Every connected client sees new content; follower scoping happens on
	// the timeline read path, not here.
	if err := d.pusher.PublishBroadcast(ctx, notifications.EventTweetNew, e.Tweet); err != nil {
		log.Printf("fanout: broadcast tweet %d: %v", e.Tweet.ID, err)
	}

	actor := e.Tweet.Author
	if e.ParentAuthorID != 0 {
		d.deliver(ctx, notification(models.NotificationReply, actor, e.ParentAuthorID, e.Tweet))
	}
	if e.QuotedAuthorID != 0 {
		d.deliver(ctx, notification(models.NotificationQuote, actor, e.QuotedAuthorID, e.Tweet))
	}
	for _, userID := range e.MentionedUserIDs {
		d.deliver(ctx, notification(models.NotificationMention, actor, userID, e.Tweet))
	}

	if d.onContent != nil {
		d.onContent(ctx)
	}
}

func (d *Dispatcher) followed(ctx context.Context, e Followed) {
	d.deliver(ctx, notification(models.NotificationFollow, e.Actor, e.Target.ID, nil))

	// The actor's own session refreshes its following state.
	change := notifications.FollowChange{FollowerID: e.Actor.ID, FollowingID: e.Target.ID}
	if err := d.pusher.PublishUser(ctx, e.Actor.ID, notifications.EventUserFollow, change); err != nil {
		log.Printf("fanout: push follow change for user %d: %v", e.Actor.ID, err)
	}
}

func (d *Dispatcher) unfollowed(ctx context.Context, e Unfollowed) {
	change := notifications.FollowChange{FollowerID: e.Actor.ID, FollowingID: e.Target.ID}
	if err := d.pusher.PublishUser(ctx, e.Actor.ID, notifications.EventUserUnfollow, change); err != nil {
		log.Printf("fanout: push unfollow change for user %d: %v", e.Actor.ID, err)
	}
}

// deliver persists one notification and pushes it to the recipient's room.
// Self-notifications are suppressed; recipients are handled independently so
// one failed delivery never blocks the rest.
func (d *Dispatcher) deliver(ctx context.Context, n *models.Notification) {
	if n.SenderID != nil && *n.SenderID == n.RecipientID {
		return
	}

	if err := d.notifRepo.Create(ctx, n); err != nil {
		observability.FanoutDeliveriesTotal.WithLabelValues(string(n.Type), "persist_error").Inc()
		log.Printf("fanout: persist %s notification for user %d: %v", n.Type, n.RecipientID, err)
		return
	}

	if err := d.pusher.PublishUser(ctx, n.RecipientID, notifications.EventNotificationNew, n); err != nil {
		observability.FanoutDeliveriesTotal.WithLabelValues(string(n.Type), "push_error").Inc()
		log.Printf("fanout: push %s notification to user %d: %v", n.Type, n.RecipientID, err)
		return
	}

	observability.FanoutDeliveriesTotal.WithLabelValues(string(n.Type), "delivered").Inc()
}

func notification(nType models.NotificationType, actor *models.User, recipientID uint, tweet *models.Tweet) *models.Notification {
	n := &models.Notification{
		RecipientID: recipientID,
		Type:        nType,
	}
	if actor != nil {
		senderID := actor.ID
		n.SenderID = &senderID
		n.Sender = actor
	}
	if tweet != nil {
		tweetID := tweet.ID
		n.TweetID = &tweetID
		n.Snippet = models.NewSnippet(tweet.Content)
	}
	return n
}
