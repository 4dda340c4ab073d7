package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wbl-labs/leadharvest/internal/extractor"
)

func TestSearchURLEncodesConstraints(t *testing.T) {
	t.Parallel()

	got := SearchURL(
		"https://www.linkedin.com/search/results/content/",
		"golang developer",
		extractor.SearchConstraints{
			Window: extractor.WindowPastDay,
			Sort:   extractor.SortByDate,
		},
	)
	require.Contains(t, got, "keywords=golang+developer")
	require.Contains(t, got, "datePosted=%5B%22past-24h%22%5D")
	require.Contains(t, got, "sortBy=%5B%22date_posted%22%5D")
	require.True(t, len(got) > 0 && got[:8] == "https://")
}

func TestSearchURLOmitsEmptyConstraints(t *testing.T) {
	t.Parallel()

	got := SearchURL("https://example.com/search", "go", extractor.SearchConstraints{})
	require.Contains(t, got, "keywords=go")
	require.NotContains(t, got, "datePosted")
	require.NotContains(t, got, "sortBy")
}

func TestClassifyFetchErr(t *testing.T) {
	t.Parallel()

	err := classifyFetchErr(context.DeadlineExceeded)
	require.True(t, extractor.IsTransient(err))

	err = classifyFetchErr(errors.New("page load error net::ERR_TIMED_OUT"))
	require.True(t, extractor.IsTransient(err))

	err = classifyFetchErr(errors.New("could not find node"))
	require.True(t, extractor.IsFatalFetch(err))

	// Cancellation passes through untagged.
	err = classifyFetchErr(context.Canceled)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, extractor.IsTransient(err))
}

func TestIsLoginPage(t *testing.T) {
	t.Parallel()

	require.True(t, isLoginPage("https://www.linkedin.com/login?redirect=x"))
	require.True(t, isLoginPage("https://www.linkedin.com/checkpoint/challenge"))
	require.False(t, isLoginPage("https://www.linkedin.com/search/results/content/?keywords=go"))
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	s, err := New(Config{SearchBaseURL: "https://example.com"}, nil)
	require.NoError(t, err)
	require.Equal(t, 25, s.cfg.MaxPosts)
	require.Equal(t, 3, s.cfg.ScrollPasses)
	require.Equal(t, DefaultSelectors(), s.cfg.Selectors)

	_, err = New(Config{}, nil)
	require.Error(t, err)
}

func TestCollectScriptUsesSelectors(t *testing.T) {
	t.Parallel()

	s, err := New(Config{
		SearchBaseURL: "https://example.com",
		Selectors: Selectors{
			Post:       ".custom-post",
			Author:     ".custom-author",
			Body:       ".custom-body",
			ProfileURL: ".custom-link",
		},
	}, nil)
	require.NoError(t, err)

	script := s.collectScript()
	require.Contains(t, script, `".custom-post"`)
	require.Contains(t, script, `".custom-author"`)
	require.Contains(t, script, `".custom-body"`)
	require.Contains(t, script, `".custom-link"`)
}

func TestClassifyFetchErrDeadlineWrapped(t *testing.T) {
	t.Parallel()

	wrapped := errors.Join(errors.New("run actions"), context.DeadlineExceeded)
	require.True(t, extractor.IsTransient(classifyFetchErr(wrapped)))
}
