package scrape

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callmeahab/pharma-search-sub001/pkg/config"
)

func TestExecSourceParsesListingLines(t *testing.T) {
	script := `printf '%s\n%s\n' ` +
		`'{"title":"Vitamin D3 2000 IU","price":"1.299,00","photos":"https://cdn.example/a.jpg"}' ` +
		`'{"title":"Omega 3","price":"2,450.50","photos":["https://cdn.example/b.jpg","https://cdn.example/c.jpg"]}'`
	source := NewExecSource("apoteka", "Apoteka Online", "sh", []string{"-c", script}, "", time.Minute)

	listings, err := source.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 2)

	assert.Equal(t, "Vitamin D3 2000 IU", listings[0].Title)
	assert.Equal(t, "1.299,00", listings[0].PriceText)
	assert.Equal(t, []string{"https://cdn.example/a.jpg"}, []string(listings[0].Photos))
	assert.Len(t, listings[1].Photos, 2)
}

func TestExecSourceFailsOnNonZeroExit(t *testing.T) {
	source := NewExecSource("broken", "Broken", "sh", []string{"-c", "exit 3"}, "", time.Minute)

	_, err := source.Collect(context.Background())
	assert.Error(t, err)
}

func TestExecSourceFailsOnMalformedLine(t *testing.T) {
	script := `printf '%s\n%s\n' '{"title":"ok","price":"1"}' 'not json'`
	source := NewExecSource("garbled", "Garbled", "sh", []string{"-c", script}, "", time.Minute)

	_, err := source.Collect(context.Background())
	assert.Error(t, err)
}

func TestExecSourceTimesOut(t *testing.T) {
	source := NewExecSource("slow", "Slow", "sleep", []string{"5"}, "", 50*time.Millisecond)

	start := time.Now()
	_, err := source.Collect(context.Background())
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	contents := `
sources:
  - name: apoteka
    vendor: Apoteka Online
    command: node
    args: ["scrapers/apoteka.js"]
  - name: benu
    vendor: BENU
    command: node
    args: ["scrapers/benu.js"]
    timeout: 5m
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	sources, err := LoadSources(path, config.ScrapeConfig{SourceTimeout: 10 * time.Minute})
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "apoteka", sources[0].Name())
	assert.Equal(t, "Apoteka Online", sources[0].VendorName())
}

func TestLoadSourcesRejectsDuplicatesAndMissingFields(t *testing.T) {
	dir := t.TempDir()

	dup := filepath.Join(dir, "dup.yaml")
	require.NoError(t, os.WriteFile(dup, []byte(`
sources:
  - {name: apoteka, vendor: A, command: node}
  - {name: apoteka, vendor: B, command: node}
`), 0o600))
	_, err := LoadSources(dup, config.ScrapeConfig{})
	assert.Error(t, err)

	missing := filepath.Join(dir, "missing.yaml")
	require.NoError(t, os.WriteFile(missing, []byte(`
sources:
  - {name: apoteka, command: node}
`), 0o600))
	_, err = LoadSources(missing, config.ScrapeConfig{})
	assert.Error(t, err)
}
