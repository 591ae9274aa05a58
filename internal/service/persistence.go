package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"news_ingest/internal/domain"
)

const itemSavepoint = "news_item"

var errVanished = errors.New("news row conflicted but could not be read")

type saveOutcome int

const (
	outcomeCreated saveOutcome = iota
	outcomeUpdated
	outcomeSkipped
)

type PersistenceService struct {
	entities  EntityResolver
	news      NewsStore
	txManager TransactionManager
	logger    *slog.Logger
}

func NewPersistenceService(entities EntityResolver, news NewsStore, txManager TransactionManager, logger *slog.Logger) *PersistenceService {
	return &PersistenceService{
		entities:  entities,
		news:      news,
		txManager: txManager,
		logger:    logger.With("component", "persistence"),
	}
}

// SaveBatch creates, updates or skips every item inside one transaction.
// Each item runs in its own savepoint: a failing item is rolled back alone,
// counted in Errors, and the batch carries on. Only failures of the batch
// transaction itself or context expiry are returned.
func (s *PersistenceService) SaveBatch(ctx context.Context, items []domain.NewsItem) (domain.BatchStats, error) {
	startTime := time.Now()
	var stats domain.BatchStats

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		stats = domain.BatchStats{}
		for i := range items {
			if err := txCtx.Err(); err != nil {
				return err
			}

			_, outcome, err := s.saveItem(ctx, txCtx, items[i])
			if err != nil {
				stats.Errors++
				s.logger.Error("failed to save news item",
					"unique_id", items[i].UniqueID,
					"provider", items[i].Provider,
					"error", err,
				)
				continue
			}

			switch outcome {
			case outcomeCreated:
				stats.Created++
			case outcomeUpdated:
				stats.Updated++
			case outcomeSkipped:
				stats.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("save batch: %w", err)
	}

	s.logger.Info("batch saved",
		"items", len(items),
		"created", stats.Created,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
		"duration", time.Since(startTime),
	)

	return stats, nil
}

// SaveOne saves a single item in its own transaction and returns the stored
// row, or nil after logging the failure.
func (s *PersistenceService) SaveOne(ctx context.Context, item domain.NewsItem) *domain.News {
	var saved *domain.News

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		n, _, err := s.saveItem(ctx, txCtx, item)
		saved = n
		return err
	})
	if err != nil {
		s.logger.Error("failed to save news item",
			"unique_id", item.UniqueID,
			"provider", item.Provider,
			"error", err,
		)
		return nil
	}

	return saved
}

// saveItem resolves entity ids on ctx, outside the batch transaction, so
// cached ids always point at committed rows. News writes go through txCtx.
func (s *PersistenceService) saveItem(ctx, txCtx context.Context, item domain.NewsItem) (*domain.News, saveOutcome, error) {
	incoming, err := s.resolve(ctx, item)
	if err != nil {
		return nil, 0, err
	}

	var (
		saved   *domain.News
		outcome saveOutcome
	)
	err = s.txManager.WithSavepoint(txCtx, itemSavepoint, func(spCtx context.Context) error {
		existing, err := s.news.GetByUniqueID(spCtx, item.UniqueID)
		if err != nil {
			return err
		}

		if existing == nil {
			inserted, err := s.news.Insert(spCtx, incoming)
			if err != nil {
				return err
			}
			if inserted {
				saved, outcome = incoming, outcomeCreated
				return nil
			}

			// lost an insert race; compare against the winner
			existing, err = s.news.GetByUniqueID(spCtx, item.UniqueID)
			if err != nil {
				return err
			}
			if existing == nil {
				return errVanished
			}
		}

		if !existing.ContentChanged(incoming) {
			saved, outcome = existing, outcomeSkipped
			return nil
		}

		updated := *existing
		updated.Title = incoming.Title
		updated.Description = incoming.Description
		updated.CategoryID = incoming.CategoryID
		updated.AuthorID = incoming.AuthorID
		updated.SourceID = incoming.SourceID
		if err := s.news.Update(spCtx, &updated); err != nil {
			return err
		}
		saved, outcome = &updated, outcomeUpdated
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("persist %s: %w", item.UniqueID, err)
	}

	return saved, outcome, nil
}

func (s *PersistenceService) resolve(ctx context.Context, item domain.NewsItem) (*domain.News, error) {
	categoryID, err := s.entities.ResolveCategoryID(ctx, item.CategoryName)
	if err != nil {
		return nil, fmt.Errorf("resolve category: %w", err)
	}

	authorID, err := s.entities.ResolveAuthorID(ctx, item.AuthorName)
	if err != nil {
		return nil, fmt.Errorf("resolve author: %w", err)
	}

	sourceID, err := s.entities.ResolveSourceID(ctx, item.Provider, item.SourceName, item.SourceDomain)
	if err != nil {
		return nil, fmt.Errorf("resolve source: %w", err)
	}

	return item.ToNews(categoryID, authorID, sourceID), nil
}
