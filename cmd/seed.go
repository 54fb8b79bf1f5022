package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/cppla/lireddit/models"
	"github.com/cppla/lireddit/services"
	"github.com/cppla/lireddit/utils"
)

var (
	seedAuthor  string
	seedCount   int
	seedFile    string
	seedSpacing time.Duration
)

// fakePost is one entry of a seed file.
type fakePost struct {
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert fake posts for local development",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := bootstrap()
		if err != nil {
			return err
		}

		var entries []fakePost
		if seedFile != "" {
			if entries, err = loadSeedFile(seedFile); err != nil {
				return err
			}
		} else {
			entries = generatePosts(seedCount)
		}

		users := services.NewUserService(db, nil, utils.Logger.Named("seed"))
		n, err := seedPosts(cmd.Context(), db, users, seedAuthor, entries, seedSpacing, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d posts as %s\n", n, seedAuthor)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedAuthor, "author", "seeder", "username owning the fake posts, created when missing")
	seedCmd.Flags().IntVarP(&seedCount, "count", "n", 100, "number of generated posts when no file is given")
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML list of {title, text} posts")
	seedCmd.Flags().DurationVar(&seedSpacing, "spacing", time.Hour, "age gap between consecutive posts")
}

func loadSeedFile(path string) ([]fakePost, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []fakePost
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return entries, nil
}

func generatePosts(count int) []fakePost {
	entries := make([]fakePost, 0, count)
	for i := 1; i <= count; i++ {
		entries = append(entries, fakePost{
			Title: fmt.Sprintf("Fake post #%d", i),
			Text:  fmt.Sprintf("Seeded body for post %d.\n\n*Generated for local development.*", i),
		})
	}
	return entries
}

// seedPosts inserts entries with creation times spaced backwards from now so the
// first entry is the newest in the feed.
func seedPosts(ctx context.Context, db *gorm.DB, users *services.UserService, author string, entries []fakePost, spacing time.Duration, now time.Time) (int, error) {
	owner, err := users.GetUserByUsername(ctx, author)
	if errors.Is(err, services.ErrNotFound) {
		owner, err = users.Register(ctx, author, "", uuid.NewString())
	}
	if err != nil {
		return 0, fmt.Errorf("seed author: %w", err)
	}

	posts := make([]models.Post, 0, len(entries))
	for i, e := range entries {
		if e.Title == "" {
			continue
		}
		posts = append(posts, models.Post{
			AuthorID:  owner.ID,
			Title:     utils.PlainText(e.Title),
			Text:      e.Text,
			CreatedAt: now.Add(-time.Duration(i) * spacing),
		})
	}
	if len(posts) == 0 {
		return 0, nil
	}
	if err := db.WithContext(ctx).CreateInBatches(&posts, 100).Error; err != nil {
		return 0, fmt.Errorf("insert posts: %w", err)
	}
	return len(posts), nil
}
