package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
)

// Indexer keeps the search indexes in sync with saved entity views by
// subscribing to the event dispatcher.
type Indexer struct {
	searcher Searcher
}

// NewIndexer registers the indexer on the dispatcher.
func NewIndexer(searcher Searcher, dispatcher events.Dispatcher) *Indexer {
	ix := &Indexer{searcher: searcher}
	dispatcher.Subscribe(events.EventUserSaved, ix.handle)
	dispatcher.Subscribe(events.EventGroupSaved, ix.handle)
	dispatcher.Subscribe(events.EventTicketSaved, ix.handle)
	return ix
}

func (ix *Indexer) handle(ctx context.Context, event events.Event) error {
	doc, err := documentFor(event)
	if err != nil {
		return err
	}
	return ix.searcher.Index(ctx, doc)
}

func documentFor(event events.Event) (Document, error) {
	switch view := event.Payload.(type) {
	case domain.User:
		fields := map[string]string{"name": view.Name}
		if tg := view.Identities.Telegram; tg != nil && tg.Username != nil {
			fields["username"] = *tg.Username
		}
		return Document{
			Kind:   KindUsers,
			ID:     view.ID,
			Value:  view,
			Fields: fields,
		}, nil
	case domain.Group:
		return Document{
			Kind:   KindGroups,
			ID:     view.ID,
			Value:  view,
			Fields: map[string]string{"title": view.Title},
		}, nil
	case domain.Ticket:
		return Document{
			Kind:   KindTickets,
			ID:     view.ID,
			Value:  view,
			Fields: map[string]string{
				"title":    view.Title,
				"messages": messageText(view),
			},
		}, nil
	default:
		return Document{}, fmt.Errorf("unindexable payload for event %s", event.Type)
	}
}

func messageText(ticket domain.Ticket) string {
	var texts []string
	for _, item := range ticket.Timeline {
		if item.Content.Message != nil {
			texts = append(texts, item.Content.Message.Text)
		}
	}
	return strings.Join(texts, "\n")
}
