package memory

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pollsite/poll-api/internal/domain/account"
	"github.com/pollsite/poll-api/internal/domain/common"
	"github.com/pollsite/poll-api/internal/domain/poll"
)

func seedQuestion(t *testing.T, c *Container, createdBy *uuid.UUID) *poll.Question {
	t.Helper()

	q := poll.NewQuestion("Best editor?", time.Now().Add(-time.Minute), createdBy)
	q.AddChoice("vim")
	q.AddChoice("emacs")
	require.NoError(t, c.Questions().Create(context.Background(), q))
	return q
}

func TestDeleteQuestionCascades(t *testing.T) {
	c := NewContainer()
	ctx := context.Background()
	q := seedQuestion(t, c, nil)

	img := poll.NewImage(q.ID, "image/png", 10, 0)
	require.NoError(t, c.Images().Create(ctx, img))

	require.NoError(t, c.Questions().Delete(ctx, q.ID))

	choices, err := c.Choices().GetByQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Empty(t, choices)

	_, err = c.Images().GetByID(ctx, img.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.ErrorIs(t, c.Questions().Delete(ctx, q.ID), common.ErrNotFound)
}

func TestDeleteUserCascadesToOwnedQuestionsOnly(t *testing.T) {
	c := NewContainer()
	ctx := context.Background()

	user := account.NewUser("ada", "ada@example.com", "hash")
	require.NoError(t, c.Users().Create(ctx, user))

	owned := seedQuestion(t, c, &user.ID)
	anonymous := seedQuestion(t, c, nil)

	require.NoError(t, c.Users().Delete(ctx, user.ID))

	_, err := c.Questions().GetByID(ctx, owned.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	kept, err := c.Questions().GetByID(ctx, anonymous.ID)
	require.NoError(t, err)
	assert.Len(t, kept.Choices, 2)
}

func TestReferencesAreEnforced(t *testing.T) {
	c := NewContainer()
	ctx := context.Background()
	ghost := uuid.New()

	q := poll.NewQuestion("Who?", time.Now(), &ghost)
	assert.ErrorIs(t, c.Questions().Create(ctx, q), common.ErrInvalidReference)

	assert.ErrorIs(t, c.Choices().Create(ctx, poll.NewChoice(uuid.New(), "x")), common.ErrInvalidReference)
	assert.ErrorIs(t, c.Images().Create(ctx, poll.NewImage(uuid.New(), "image/png", 1, 0)), common.ErrInvalidReference)
}

func TestUsernameIsUnique(t *testing.T) {
	c := NewContainer()
	ctx := context.Background()

	require.NoError(t, c.Users().Create(ctx, account.NewUser("ada", "ada@example.com", "hash")))
	err := c.Users().Create(ctx, account.NewUser("ada", "other@example.com", "hash"))
	assert.ErrorIs(t, err, common.ErrConflict)

	found, err := c.Users().GetByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", found.Email)
}

func TestIncrementVotesConcurrently(t *testing.T) {
	c := NewContainer()
	ctx := context.Background()
	q := seedQuestion(t, c, nil)
	choiceID := q.Choices[0].ID

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Choices().IncrementVotes(ctx, q.ID, choiceID))
		}()
	}
	wg.Wait()

	loaded, err := c.Questions().GetByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, loaded.TotalVotes())

	assert.ErrorIs(t, c.Choices().IncrementVotes(ctx, uuid.New(), choiceID), common.ErrNotFound)
}

func TestListPublished(t *testing.T) {
	c := NewContainer()
	ctx := context.Background()
	now := time.Now()

	for _, offset := range []time.Duration{-48 * time.Hour, -2 * time.Hour, -time.Hour, time.Hour} {
		require.NoError(t, c.Questions().Create(ctx, poll.NewQuestion("q", now.Add(offset), nil)))
	}

	recent, err := c.Questions().ListPublished(ctx, now, now.Add(-poll.RecentWindow), 0)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.True(t, recent[0].PubDate.After(recent[1].PubDate))

	all, err := c.Questions().ListPublished(ctx, now, time.Time{}, 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListPublishedTiesOrderedByID(t *testing.T) {
	c := NewContainer()
	ctx := context.Background()
	pub := time.Now().Add(-time.Hour)

	var ids []string
	for i := 0; i < 8; i++ {
		q := poll.NewQuestion("same time", pub, nil)
		require.NoError(t, c.Questions().Create(ctx, q))
		ids = append(ids, q.ID.String())
	}
	sort.Strings(ids)

	for run := 0; run < 5; run++ {
		listed, err := c.Questions().ListPublished(ctx, time.Now(), time.Time{}, 0)
		require.NoError(t, err)
		require.Len(t, listed, len(ids))
		for i, q := range listed {
			assert.Equal(t, ids[i], q.ID.String())
		}
	}
}

func TestGetByUsernameTrimsInput(t *testing.T) {
	c := NewContainer()
	ctx := context.Background()
	require.NoError(t, c.Users().Create(ctx, account.NewUser("ada", "ada@example.com", "hash")))

	found, err := c.Users().GetByUsername(ctx, "  ada\t")
	require.NoError(t, err)
	assert.Equal(t, "ada", found.Username)

	_, err = c.Users().GetByUsername(ctx, "   ")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
