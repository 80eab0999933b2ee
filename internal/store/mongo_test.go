package store

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/database"
)

func TestMongoSessionStoreContract(t *testing.T) {
	uri := strings.TrimSpace(os.Getenv("CMS_TEST_MONGODB_URI"))
	if uri == "" {
		t.Skip("CMS_TEST_MONGODB_URI not set")
	}

	runSessionStoreContract(t, func(t *testing.T) SessionStore {
		ctx := context.Background()
		client, db, err := database.OpenMongo(ctx, database.MongoConfig{
			URI:           uri,
			Database:      "cms_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
			RetryAttempts: 1,
		})
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = db.Drop(context.Background())
			_ = client.Disconnect(context.Background())
		})

		s, err := NewMongoSessionStore(ctx, db)
		require.NoError(t, err)
		return s
	})
}

func TestFilterDocument(t *testing.T) {
	doc := filterDocument(Filter{
		UserID:        "u1",
		ExcludeID:     "s1",
		ExpiresBefore: contractNow,
		ExpiresAfter:  contractNow.Add(-time.Hour),
	})

	keys := make([]string, 0, len(doc))
	for _, elem := range doc {
		keys = append(keys, elem.Key)
	}
	require.Equal(t, []string{"user_id", "_id", "expires_at"}, keys)
	require.Empty(t, filterDocument(Filter{}))
}

func TestSetDocumentAlwaysTouchesUpdatedAt(t *testing.T) {
	doc := setDocument(Revocation())
	require.Len(t, doc, 1)
	require.Equal(t, "$set", doc[0].Key)
}
