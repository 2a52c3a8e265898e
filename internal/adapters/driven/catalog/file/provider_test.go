package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lernkern/lernkern/internal/core/domain"
)

func writeCatalogFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

const modulesJSON = `[
	{
		"id": "bp-dpa-01",
		"nativeCategory": "Datenbanken",
		"title": "SQL Grundlagen",
		"difficulty": "beginner",
		"examRelevance": "high"
	}
]`

const quizzesJSON = `[
	{
		"id": "bp-dpa-quiz-01",
		"nativeCategory": "Datenbanken",
		"title": "SQL Quiz",
		"difficulty": "beginner",
		"examRelevance": "high",
		"questions": [
			{
				"id": "q1",
				"type": "single",
				"text": "Welche Anweisung liest Daten?",
				"options": ["SELECT", "INSERT"],
				"correctAnswer": ["SELECT"],
				"points": 1
			}
		]
	}
]`

func TestProvider_LoadAll(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, "modules.json", modulesJSON)
	writeCatalogFile(t, dir, "quizzes.json", quizzesJSON)

	catalog, err := NewProvider(dir).LoadAll(context.Background())
	require.NoError(t, err)

	require.Len(t, catalog.Modules, 1)
	assert.Equal(t, "bp-dpa-01", catalog.Modules[0].ID)
	require.Len(t, catalog.Quizzes, 1)
	assert.Equal(t, "bp-dpa-quiz-01", catalog.Quizzes[0].ID)

	// The kind is stamped from the file when entries omit it.
	assert.Equal(t, domain.KindModule, catalog.Modules[0].Kind)
	assert.Equal(t, domain.KindQuiz, catalog.Quizzes[0].Kind)
}

func TestProvider_MissingQuizzesTolerated(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, "modules.json", modulesJSON)

	catalog, err := NewProvider(dir).LoadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, catalog.Modules, 1)
	assert.Empty(t, catalog.Quizzes)
}

func TestProvider_MissingModulesFails(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, "quizzes.json", quizzesJSON)

	_, err := NewProvider(dir).LoadAll(context.Background())
	assert.Error(t, err)
}

func TestProvider_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	writeCatalogFile(t, dir, "modules.json", "{not json")

	_, err := NewProvider(dir).LoadAll(context.Background())
	assert.ErrorIs(t, err, domain.ErrCatalogInvalid)
}
