package review_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ompragash/drone-ai-pr-reviewer/internal/domain"
	"github.com/Ompragash/drone-ai-pr-reviewer/internal/usecase/review"
)

func TestPostBatchesWhenSupported(t *testing.T) {
	scm := &fakeSCM{}
	p := review.NewPoster(scm, nil)

	comments := []domain.Comment{
		{Path: "a.go", Line: 3, Body: "x"},
		{Path: "b.go", Line: 9, Body: "y"},
	}
	res := p.Post(context.Background(), "head", comments)

	assert.Equal(t, 2, res.Posted)
	require.Len(t, scm.reviews, 1)
	assert.Len(t, scm.reviews[0], 2)
	assert.Empty(t, scm.comments)
}

func TestPostFallsBackToIndividualComments(t *testing.T) {
	scm := &fakeSCM{reviewErr: domain.ErrBatchUnsupported}
	p := review.NewPoster(scm, nil)

	comments := []domain.Comment{
		{Path: "a.go", Line: 3, Body: "x"},
		{Path: "b.go", Line: 9, Body: "y"},
	}
	res := p.Post(context.Background(), "head", comments)

	assert.Equal(t, 2, res.Posted)
	assert.Len(t, scm.comments, 2)
}

func TestPostIndividualFailureDoesNotStopTheRest(t *testing.T) {
	scm := &fakeSCM{
		reviewErr: errors.New("422 unprocessable"),
		commentErr: func(c domain.Comment) error {
			if c.Path == "a.go" {
				return errors.New("line outside diff")
			}
			return nil
		},
	}
	p := review.NewPoster(scm, nil)

	res := p.Post(context.Background(), "head", []domain.Comment{
		{Path: "a.go", Line: 3, Body: "x"},
		{Path: "b.go", Line: 9, Body: "y"},
	})

	assert.Equal(t, 1, res.Posted)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, scm.comments, 1)
	assert.Equal(t, "b.go", scm.comments[0].Path)
}

func TestPostSuppressesDuplicates(t *testing.T) {
	existing := domain.Comment{Path: "a.go", Line: 3, Body: "x"}
	scm := &fakeSCM{existing: []domain.Comment{existing}}
	p := review.NewPoster(scm, nil)

	res := p.Post(context.Background(), "head", []domain.Comment{
		existing,
		{Path: "b.go", Line: 9, Body: "y"},
	})

	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, 1, res.Posted)
	require.Len(t, scm.reviews, 1)
	assert.Equal(t, "b.go", scm.reviews[0][0].Path)
}

func TestPostDuplicateCheckTrimsBodyWhitespace(t *testing.T) {
	scm := &fakeSCM{existing: []domain.Comment{{Path: "a.go", Line: 3, Body: "x\n"}}}
	p := review.NewPoster(scm, nil)

	res := p.Post(context.Background(), "head", []domain.Comment{
		{Path: "a.go", Line: 3, Body: "x"},
	})
	assert.Equal(t, 1, res.Duplicates)
	assert.Zero(t, res.Posted)
}

func TestPostSkipsDedupWhenListingFails(t *testing.T) {
	scm := &fakeSCM{existingErr: errors.New("403")}
	p := review.NewPoster(scm, nil)

	res := p.Post(context.Background(), "head", []domain.Comment{
		{Path: "a.go", Line: 3, Body: "x"},
	})
	assert.Equal(t, 1, res.Posted)
	assert.Zero(t, res.Duplicates)
}

func TestPostNothingToPost(t *testing.T) {
	scm := &fakeSCM{}
	p := review.NewPoster(scm, nil)

	res := p.Post(context.Background(), "head", nil)
	assert.Zero(t, res.Posted)
	assert.Empty(t, scm.reviews)
	assert.Empty(t, scm.comments)
}
