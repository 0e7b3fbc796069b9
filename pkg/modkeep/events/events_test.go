package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe("Raiden", Enabled, Disabled)
	require.NotNil(t, sub)
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, "Raiden", sub.Object)
	assert.Equal(t, 1, b.SubscriberCount())
}

func TestPublish_Delivers(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe("")
	b.Publish(Event{Type: Created, Object: "Raiden", Path: "/mods/Raiden/ExampleMod"})

	select {
	case ev := <-sub.Events:
		assert.Equal(t, Created, ev.Type)
		assert.Equal(t, "/mods/Raiden/ExampleMod", ev.Path)
		assert.False(t, ev.Time.IsZero())
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected event not received")
	}
}

func TestPublish_Filters(t *testing.T) {
	b := New()
	defer b.Close()

	byObject := b.Subscribe("Furina")
	byType := b.Subscribe("", Deleted)

	b.Publish(Event{Type: Created, Object: "Raiden"})
	b.Publish(Event{Type: Deleted, Object: "Furina"})

	select {
	case ev := <-byObject.Events:
		assert.Equal(t, "Furina", ev.Object)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("object subscriber missed its event")
	}
	select {
	case ev := <-byType.Events:
		assert.Equal(t, Deleted, ev.Type)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("type subscriber missed its event")
	}

	assert.Empty(t, byObject.Events)
	assert.Empty(t, byType.Events)
}

func TestPublish_DropsWhenFull(t *testing.T) {
	b := NewWithBuffer(2)
	defer b.Close()

	sub := b.Subscribe("")
	for i := 0; i < 5; i++ {
		b.Publish(Event{Type: Created})
	}

	assert.Len(t, sub.Events, 2)
	assert.Equal(t, int64(3), b.Dropped())
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	defer b.Close()

	sub := b.Subscribe("")
	b.Unsubscribe(sub.ID)
	b.Unsubscribe(sub.ID)

	_, open := <-sub.Events
	assert.False(t, open)
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestClose(t *testing.T) {
	b := New()
	sub := b.Subscribe("")

	b.Close()
	b.Close()

	_, open := <-sub.Events
	assert.False(t, open)
	assert.Nil(t, b.Subscribe(""))

	b.Publish(Event{Type: Created})
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "folder-deleted", FolderDeleted.String())
	assert.Equal(t, "enabled", Enabled.String())
	assert.Equal(t, "unknown", Type(0).String())
}
