// Seed command. Reads skill definition files from SEED_DIR and upserts
// them into the Qdrant collection, embedding each summary on the way in.
//
// Usage:
//
//	go run ./cmd/seed
package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"

	"skillhub/internal/config"
	"skillhub/internal/embedding"
	"skillhub/internal/skill"
	"skillhub/internal/vectorstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	store, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}
	if !store.HealthCheck(ctx) {
		log.Fatalf("Qdrant is not reachable at %s", cfg.QdrantURL)
	}
	if err := store.EnsureCollection(ctx, cfg.EmbeddingVectorSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}

	embedder := embedding.NewProvider(embedding.Options{
		Model:      cfg.EmbeddingModel,
		BaseURL:    cfg.EmbeddingBaseURL,
		APIKey:     cfg.EmbeddingAPIKey,
		VectorSize: cfg.EmbeddingVectorSize,
	})
	orchestrator := skill.NewOrchestrator(embedder, store)

	skills, err := loadSeedDir(cfg.SeedDir)
	if err != nil {
		log.Fatalf("Failed to load seed directory: %v", err)
	}
	if len(skills) == 0 {
		log.Fatalf("No skill files found in %s", cfg.SeedDir)
	}

	slog.Info("Seeding skills", "count", len(skills), "collection", cfg.QdrantCollection)
	for _, s := range skills {
		if err := orchestrator.UpsertSkill(ctx, s); err != nil {
			log.Fatalf("Failed to seed %s: %v", s.SkillID, err)
		}
		slog.Info("Seeded skill", "skill_id", s.SkillID, "is_folder", s.IsFolder)
	}
	slog.Info("Seeding complete")
}

// loadSeedDir reads every .md file in dir and parses it into a skill.
// Files are sorted by name so folders seeded before their children when
// named accordingly, though order does not matter for correctness.
func loadSeedDir(dir string) ([]*skill.Skill, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed directory %s: %w", dir, err)
	}

	var skills []*skill.Skill
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		s, err := parseSkillFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		skills = append(skills, s)
	}
	return skills, nil
}

// parseSkillFile parses a markdown skill file. The YAML frontmatter carries
// skill_id, summary, is_folder and sub_skills; the body is the instruction.
func parseSkillFile(path string) (*skill.Skill, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read skill file: %w", err)
	}

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, fmt.Errorf("failed to parse markdown: %w", err)
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return nil, fmt.Errorf("missing frontmatter")
	}

	skillID, _ := metaData["skill_id"].(string)
	summary, _ := metaData["summary"].(string)
	if skillID == "" {
		return nil, fmt.Errorf("skill_id is required in frontmatter")
	}
	if summary == "" {
		return nil, fmt.Errorf("summary is required in frontmatter")
	}

	isFolder, _ := metaData["is_folder"].(bool)

	var subSkills []string
	if raw, ok := metaData["sub_skills"].([]any); ok {
		for _, v := range raw {
			if id, ok := v.(string); ok {
				subSkills = append(subSkills, id)
			}
		}
	}

	return &skill.Skill{
		SkillID:     skillID,
		Summary:     summary,
		IsFolder:    isFolder,
		SubSkills:   subSkills,
		Instruction: extractBodyContent(string(content)),
	}, nil
}

// extractBodyContent strips the YAML frontmatter block and returns the
// raw markdown body.
func extractBodyContent(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	frontmatterEnd := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			frontmatterEnd = i
			break
		}
	}
	if frontmatterEnd == -1 {
		return content
	}

	return strings.TrimLeft(strings.Join(lines[frontmatterEnd+1:], "\n"), "\n")
}
