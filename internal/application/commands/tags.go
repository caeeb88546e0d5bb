package commands

import (
	"context"
	"fmt"
	"strings"

	"marginalia/internal/application"
	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

// TagResult contains an entry's tags after a tag operation
type TagResult struct {
	ContentID domain.ContentID
	Tags      []string
	Message   string
}

// TagCommand attaches tags to an entry, or detaches them when Remove is set
type TagCommand struct {
	store     ports.MetadataStore
	ContentID string
	Tags      []string
	Remove    bool
}

// NewTagCommand creates a command adding tags
func NewTagCommand(store ports.MetadataStore, id string, tags []string) *TagCommand {
	return &TagCommand{store: store, ContentID: id, Tags: tags}
}

// NewUntagCommand creates a command removing tags
func NewUntagCommand(store ports.MetadataStore, id string, tags []string) *TagCommand {
	return &TagCommand{store: store, ContentID: id, Tags: tags, Remove: true}
}

// Validate checks if the tag operation is valid
func (c *TagCommand) Validate() error {
	if _, err := application.ValidateContentID("contentID", c.ContentID); err != nil {
		return err
	}
	_, err := c.normalized()
	return err
}

func (c *TagCommand) normalized() ([]string, error) {
	if len(c.Tags) == 0 {
		return nil, &application.ValidationError{Field: "tag", Message: "at least one tag is required"}
	}
	tags := make([]string, 0, len(c.Tags))
	for _, raw := range c.Tags {
		t, err := application.NormalizeTag(raw)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// Execute runs the tag command
func (c *TagCommand) Execute(ctx context.Context) (*TagResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	id, _ := domain.ParseContentID(c.ContentID)
	tags, _ := c.normalized()

	verb := "Tagged"
	if c.Remove {
		verb = "Untagged"
		if err := c.store.RemoveTags(ctx, id, tags...); err != nil {
			return nil, fmt.Errorf("failed to untag: %w", err)
		}
	} else if err := c.store.AddTags(ctx, id, tags...); err != nil {
		return nil, fmt.Errorf("failed to tag: %w", err)
	}

	current, err := c.store.Tags(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TagResult{
		ContentID: id,
		Tags:      current,
		Message:   fmt.Sprintf("%s %s: %s", verb, id.Short(), strings.Join(tags, ", ")),
	}, nil
}

// QueueResult contains a queue's members after a queue operation
type QueueResult struct {
	Queue   string
	Members []domain.ContentID
	Message string
}

// QueueCommand adds entries to a named queue, or removes them when Remove is set
type QueueCommand struct {
	store      ports.MetadataStore
	Queue      string
	ContentIDs []string
	Remove     bool
}

// NewEnqueueCommand creates a command adding entries to a queue
func NewEnqueueCommand(store ports.MetadataStore, queue string, ids []string) *QueueCommand {
	return &QueueCommand{store: store, Queue: queue, ContentIDs: ids}
}

// NewDequeueCommand creates a command removing entries from a queue
func NewDequeueCommand(store ports.MetadataStore, queue string, ids []string) *QueueCommand {
	return &QueueCommand{store: store, Queue: queue, ContentIDs: ids, Remove: true}
}

// Validate checks if the queue operation is valid
func (c *QueueCommand) Validate() error {
	if err := application.ValidateRequired("queue", c.Queue); err != nil {
		return err
	}
	_, err := application.ValidateContentIDs("contentIDs", c.ContentIDs)
	return err
}

// Execute runs the queue command
func (c *QueueCommand) Execute(ctx context.Context) (*QueueResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	ids, _ := application.ValidateContentIDs("contentIDs", c.ContentIDs)
	queue := strings.TrimSpace(c.Queue)

	verb := "Queued"
	if c.Remove {
		verb = "Dequeued"
		if err := c.store.Dequeue(ctx, queue, ids); err != nil {
			return nil, fmt.Errorf("failed to dequeue: %w", err)
		}
	} else if err := c.store.Enqueue(ctx, queue, ids); err != nil {
		return nil, fmt.Errorf("failed to enqueue: %w", err)
	}

	members, err := c.store.QueueMembers(ctx, queue)
	if err != nil {
		return nil, err
	}
	return &QueueResult{
		Queue:   queue,
		Members: members,
		Message: fmt.Sprintf("%s %d entries on %s", verb, len(ids), queue),
	}, nil
}

// ShowQueueCommand lists a queue in insertion order
type ShowQueueCommand struct {
	store ports.MetadataStore
	Queue string
}

// NewShowQueueCommand creates a new ShowQueueCommand
func NewShowQueueCommand(store ports.MetadataStore, queue string) *ShowQueueCommand {
	return &ShowQueueCommand{store: store, Queue: queue}
}

// Execute runs the show queue command
func (c *ShowQueueCommand) Execute(ctx context.Context) ([]domain.IndexedEntry, error) {
	if err := application.ValidateRequired("queue", c.Queue); err != nil {
		return nil, err
	}
	ids, err := c.store.QueueMembers(ctx, strings.TrimSpace(c.Queue))
	if err != nil {
		return nil, err
	}
	entries := make([]domain.IndexedEntry, 0, len(ids))
	for _, id := range ids {
		e, err := c.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, nil
}
