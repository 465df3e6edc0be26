package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
)

type fakePublisher struct {
	channel string
	payload []byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestRedisNotifierPublishesToUserChannel(t *testing.T) {
	pub := &fakePublisher{}
	n := newRedisNotifier(pub, nil)

	err := n.Publish(context.Background(), 7, Notification{Level: LevelSuccess, Event: "design.saved", Message: "ok", DesignID: 3})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if pub.channel != "user_notify:7" {
		t.Fatalf("unexpected channel %q", pub.channel)
	}
	var got Notification
	if err := json.Unmarshal(pub.payload, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got.DesignID != 3 || got.Level != LevelSuccess {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestRedisNotifierSkipsAnonymous(t *testing.T) {
	pub := &fakePublisher{}
	n := newRedisNotifier(pub, nil)
	if err := n.Publish(context.Background(), 0, Notification{}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if pub.channel != "" {
		t.Fatalf("expected no publish, got %q", pub.channel)
	}
}

func TestNotifySwallowsErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("redis down")}
	n := newRedisNotifier(pub, nil)
	n.Notify(context.Background(), 1, Notification{Level: LevelError})
	if pub.channel != "user_notify:1" {
		t.Fatalf("expected publish attempt, got %q", pub.channel)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Notify(context.Background(), 2, Notification{Event: "a"})
	r.Notify(context.Background(), 2, Notification{Event: "b"})
	records := r.Records()
	if len(records) != 2 || records[1].Notification.Event != "b" {
		t.Fatalf("unexpected records %+v", records)
	}
}
