package csvsink

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/chart-scraper/internal/scraper"
)

func newSink(t *testing.T, cfg Config) (*Sink, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	s, err := New(cfg, zap.New(core))
	require.NoError(t, err)
	return s, logs
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "movies.csv")
	s, logs := newSink(t, Config{Path: path})

	first := []scraper.Record{
		{Title: "A", Date: "2024", Rating: "8,1", Plot: "one"},
		{Title: "B", Date: "2023", Rating: "7.0", Plot: "two"},
	}
	require.NoError(t, s.Append(context.Background(), first))
	assert.Equal(t,
		"Title,Release Date,Rating,Plot\r\nA,2024,\"8,1\",one\r\nB,2023,7.0,two\r\n",
		readFile(t, path))

	second := []scraper.Record{{Title: "C", Date: "2022", Rating: "6.5", Plot: "three"}}
	require.NoError(t, s.Append(context.Background(), second))
	content := readFile(t, path)
	assert.Equal(t, 1, strings.Count(content, "Title,Release Date"))
	assert.True(t, strings.HasSuffix(content, "B,2023,7.0,two\r\nC,2022,6.5,three\r\n"))

	saved := logs.FilterMessage("Saved").All()
	require.Len(t, saved, 3)
	assert.Equal(t, "C", saved[2].ContextMap()["title"])
	assert.Equal(t, "6.5", saved[2].ContextMap()["rating"])
}

func TestAppendWritesHeaderIntoEmptyExistingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "movies.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	s, _ := newSink(t, Config{Path: path})

	require.NoError(t, s.Append(context.Background(), []scraper.Record{{Title: "A", Date: "d", Rating: "r", Plot: "p"}}))
	assert.Equal(t, "Title,Release Date,Rating,Plot\r\nA,d,r,p\r\n", readFile(t, path))
}

func TestAppendKeepsExistingContent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "movies.csv")
	require.NoError(t, os.WriteFile(path, []byte("Title,Release Date,Rating,Plot\r\nOld,d,r,p\r\n"), 0o600))
	s, _ := newSink(t, Config{Path: path})

	require.NoError(t, s.Append(context.Background(), []scraper.Record{{Title: "New", Date: "d", Rating: "r", Plot: "p"}}))
	assert.Equal(t, "Title,Release Date,Rating,Plot\r\nOld,d,r,p\r\nNew,d,r,p\r\n", readFile(t, path))
}

func TestAppendEmptyBatchCreatesHeaderOnly(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "movies.csv")
	s, _ := newSink(t, Config{Path: path})

	require.NoError(t, s.Append(context.Background(), nil))
	assert.Equal(t, "Title,Release Date,Rating,Plot\r\n", readFile(t, path))
}

func TestAppendRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "movies.csv")
	s, _ := newSink(t, Config{Path: path})

	records := []scraper.Record{
		{Title: "  Leading space", Date: "1 de março de 2024", Rating: "8,5", Plot: `He said "hi", then left.`},
		{Title: "Multi", Date: "d", Rating: "r", Plot: "line one\nline two"},
	}
	require.NoError(t, s.Append(context.Background(), records))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, scraper.Header, rows[0])
	assert.Equal(t, records[0].Row(), rows[1])
	assert.Equal(t, records[1].Row(), rows[2])
}

func TestAppendCustomDialect(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "movies.tsv")
	s, _ := newSink(t, Config{Path: path, Delimiter: ';', Quote: '\''})

	require.NoError(t, s.Append(context.Background(), []scraper.Record{
		{Title: "It's", Date: "a;b", Rating: "8,5", Plot: `"quoted"`},
	}))
	assert.Equal(t, "Title;Release Date;Rating;Plot\r\n'It''s';'a;b';8,5;\"quoted\"\r\n", readFile(t, path))
}

func TestAppendMissingDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing", "movies.csv")
	s, _ := newSink(t, Config{Path: path})

	err := s.Append(context.Background(), []scraper.Record{{Title: "A", Date: "d", Rating: "r", Plot: "p"}})
	require.Error(t, err)
	assert.Equal(t, scraper.SinkNotFound, scraper.SinkCategory(err))
	_, statErr := os.Stat(filepath.Dir(path))
	assert.True(t, os.IsNotExist(statErr))
}

func TestAppendInvalidUTF8StopsMidBatch(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "movies.csv")
	s, logs := newSink(t, Config{Path: path})

	err := s.Append(context.Background(), []scraper.Record{
		{Title: "Good", Date: "d", Rating: "r", Plot: "p"},
		{Title: "Bad", Date: "d", Rating: "r", Plot: "\xff\xfe"},
		{Title: "Never", Date: "d", Rating: "r", Plot: "p"},
	})
	require.ErrorIs(t, err, scraper.ErrEncoding)
	assert.Equal(t, scraper.SinkEncoding, scraper.SinkCategory(err))
	assert.Equal(t, "Title,Release Date,Rating,Plot\r\nGood,d,r,p\r\n", readFile(t, path))
	assert.Equal(t, 1, logs.FilterMessage("Saved").Len())
}

func TestEncodeRowRejectsWrongWidth(t *testing.T) {
	t.Parallel()

	s, _ := newSink(t, Config{Path: "unused.csv"})
	_, err := s.encodeRow([]string{"only", "three", "fields"})
	require.ErrorIs(t, err, scraper.ErrMalformedRow)
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		cfg  Config
	}{
		{"empty path", Config{Path: " "}},
		{"same runes", Config{Path: "x.csv", Delimiter: '|', Quote: '|'}},
		{"newline delimiter", Config{Path: "x.csv", Delimiter: '\n'}},
		{"carriage return quote", Config{Path: "x.csv", Quote: '\r'}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tc.cfg, nil)
			assert.Error(t, err)
		})
	}

	s, err := New(Config{Path: "x.csv"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "x.csv", s.Path())
}
