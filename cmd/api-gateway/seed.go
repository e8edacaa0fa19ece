package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/edumarket-api/internal/models"
	"github.com/noah-isme/edumarket-api/internal/repository"
	"github.com/noah-isme/edumarket-api/internal/service"
	"github.com/noah-isme/edumarket-api/pkg/database"
)

type seedFile struct {
	Categories []models.Category `yaml:"categories"`
}

func newSeedCmd(rt *app) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert reference categories from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer f.Close()

			categories, err := parseSeed(f)
			if err != nil {
				return err
			}

			db, err := database.NewPostgres(rt.cfg.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			svc := service.NewCategoryService(repository.NewCategoryRepository(db), nil, nil, 0, nil, rt.logger)
			written, err := svc.Seed(ctx, categories)
			if err != nil {
				return err
			}
			rt.logger.Info("categories seeded", zap.Int("count", written), zap.String("file", path))
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "categories.yaml", "seed file to load")
	return cmd
}

func parseSeed(r io.Reader) ([]models.Category, error) {
	var file seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("seed file is empty")
		}
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("seed file has no categories")
	}
	return file.Categories, nil
}
