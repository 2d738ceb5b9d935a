package drift

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const DefaultCollection = "drift_logs"

// FirestoreStore implements Store on a Firestore collection. Documents are
// keyed "<user>_<month>".
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore creates a new Firestore-backed drift store
func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &FirestoreStore{
		client:     client,
		collection: collection,
	}
}

func (s *FirestoreStore) Put(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}

	_, err := s.client.Collection(s.collection).Doc(documentID(entry.UserID, entry.Month)).Set(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to store drift entry: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Get(ctx context.Context, userID, month string) (*Entry, error) {
	doc, err := s.client.Collection(s.collection).Doc(documentID(userID, month)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get drift entry: %w", err)
	}

	var entry Entry
	if err := doc.DataTo(&entry); err != nil {
		return nil, fmt.Errorf("failed to parse drift entry: %w", err)
	}
	return &entry, nil
}

// History returns every entry of the user ordered by month. Sorting happens
// client side so the query needs no composite index.
func (s *FirestoreStore) History(ctx context.Context, userID string) ([]Entry, error) {
	docs, err := s.client.Collection(s.collection).Where("user_id", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list drift entries: %w", err)
	}

	entries := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		var entry Entry
		if err := doc.DataTo(&entry); err != nil {
			return nil, fmt.Errorf("failed to parse drift entry: %w", err)
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Month < entries[j].Month
	})
	return entries, nil
}
