package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"news_ingest/internal/domain"
	"news_ingest/internal/service/mocks"
)

type PersistenceServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller
	ctx  context.Context

	entities  *mocks.MockEntityResolver
	news      *mocks.MockNewsStore
	txManager *mocks.MockTransactionManager

	service *PersistenceService
}

func (s *PersistenceServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ctx = context.Background()

	s.entities = mocks.NewMockEntityResolver(s.ctrl)
	s.news = mocks.NewMockNewsStore(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)

	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	).AnyTimes()
	s.txManager.EXPECT().WithSavepoint(gomock.Any(), itemSavepoint, gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, fn func(context.Context) error) error {
			return fn(ctx)
		},
	).AnyTimes()

	s.service = NewPersistenceService(s.entities, s.news, s.txManager, testLogger())
}

func (s *PersistenceServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestPersistenceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PersistenceServiceTestSuite))
}

func (s *PersistenceServiceTestSuite) item(uniqueID, title string) domain.NewsItem {
	return domain.NewsItem{
		UniqueID:     uniqueID,
		Title:        title,
		Description:  strPtr("desc"),
		CategoryName: strPtr("Technology"),
		AuthorName:   strPtr("Jane Doe"),
		SourceName:   strPtr("TechCrunch"),
		SourceDomain: strPtr("techcrunch.com"),
		Provider:     domain.ProviderNewsAPI,
		SourceURL:    "https://techcrunch.com/" + uniqueID,
	}
}

func (s *PersistenceServiceTestSuite) expectResolve() {
	s.entities.EXPECT().ResolveCategoryID(gomock.Any(), gomock.Any()).Return(int64(2), nil).AnyTimes()
	s.entities.EXPECT().ResolveAuthorID(gomock.Any(), gomock.Any()).Return(int64Ptr(5), nil).AnyTimes()
	s.entities.EXPECT().ResolveSourceID(gomock.Any(), domain.ProviderNewsAPI, gomock.Any(), gomock.Any()).Return(int64(7), nil).AnyTimes()
}

func (s *PersistenceServiceTestSuite) stored(item domain.NewsItem) *domain.News {
	n := item.ToNews(2, int64Ptr(5), 7)
	n.ID = 100
	n.CreatedAt = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return n
}

func (s *PersistenceServiceTestSuite) TestSaveBatch_CreatesNewItem() {
	s.expectResolve()
	item := s.item("newsapi_1", "A")

	s.news.EXPECT().GetByUniqueID(gomock.Any(), "newsapi_1").Return(nil, nil)
	s.news.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, n *domain.News) (bool, error) {
		s.Equal("A", n.Title)
		s.Equal(int64(2), n.CategoryID)
		s.Equal(int64(5), *n.AuthorID)
		s.Equal(int64(7), n.SourceID)
		s.Equal(domain.ProviderNewsAPI, n.Provider)
		return true, nil
	})

	stats, err := s.service.SaveBatch(s.ctx, []domain.NewsItem{item})
	s.Require().NoError(err)
	s.Equal(domain.BatchStats{Created: 1}, stats)
}

func (s *PersistenceServiceTestSuite) TestSaveBatch_UnchangedItemIsSkipped() {
	s.expectResolve()
	item := s.item("newsapi_1", "A")

	s.news.EXPECT().GetByUniqueID(gomock.Any(), "newsapi_1").Return(s.stored(item), nil)

	stats, err := s.service.SaveBatch(s.ctx, []domain.NewsItem{item})
	s.Require().NoError(err)
	s.Equal(domain.BatchStats{Skipped: 1}, stats)
}

func (s *PersistenceServiceTestSuite) TestSaveBatch_ChangedTitleUpdatesAndPreservesOtherFields() {
	s.expectResolve()
	original := s.item("newsapi_1", "A")
	existing := s.stored(original)
	published := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	existing.PublishedAt = &published

	incoming := original
	incoming.Title = "A (updated)"
	incoming.SourceURL = "https://elsewhere.example/1"
	incoming.PublishedAt = nil

	s.news.EXPECT().GetByUniqueID(gomock.Any(), "newsapi_1").Return(existing, nil)
	s.news.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, n *domain.News) error {
		s.Equal(int64(100), n.ID)
		s.Equal("A (updated)", n.Title)
		s.Equal(original.SourceURL, n.SourceURL)
		s.Equal(&published, n.PublishedAt)
		s.Equal(existing.CreatedAt, n.CreatedAt)
		return nil
	})

	stats, err := s.service.SaveBatch(s.ctx, []domain.NewsItem{incoming})
	s.Require().NoError(err)
	s.Equal(domain.BatchStats{Updated: 1}, stats)
}

func (s *PersistenceServiceTestSuite) TestSaveBatch_ItemErrorIsCountedAndBatchContinues() {
	s.expectResolve()
	first, second, third := s.item("newsapi_1", "A"), s.item("newsapi_2", "B"), s.item("newsapi_3", "C")

	s.news.EXPECT().GetByUniqueID(gomock.Any(), "newsapi_1").Return(nil, nil)
	s.news.EXPECT().GetByUniqueID(gomock.Any(), "newsapi_2").Return(nil, errors.New("deadlock detected"))
	s.news.EXPECT().GetByUniqueID(gomock.Any(), "newsapi_3").Return(s.stored(third), nil)
	s.news.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(true, nil)

	stats, err := s.service.SaveBatch(s.ctx, []domain.NewsItem{first, second, third})
	s.Require().NoError(err)
	s.Equal(domain.BatchStats{Created: 1, Skipped: 1, Errors: 1}, stats)
}

func (s *PersistenceServiceTestSuite) TestSaveBatch_ResolutionErrorIsCounted() {
	s.entities.EXPECT().ResolveCategoryID(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("db down"))

	stats, err := s.service.SaveBatch(s.ctx, []domain.NewsItem{s.item("newsapi_1", "A")})
	s.Require().NoError(err)
	s.Equal(domain.BatchStats{Errors: 1}, stats)
}

func (s *PersistenceServiceTestSuite) TestSaveBatch_LostInsertRaceComparesWithWinner() {
	s.expectResolve()
	item := s.item("newsapi_1", "A")

	gomock.InOrder(
		s.news.EXPECT().GetByUniqueID(gomock.Any(), "newsapi_1").Return(nil, nil),
		s.news.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(false, nil),
		s.news.EXPECT().GetByUniqueID(gomock.Any(), "newsapi_1").Return(s.stored(item), nil),
	)

	stats, err := s.service.SaveBatch(s.ctx, []domain.NewsItem{item})
	s.Require().NoError(err)
	s.Equal(domain.BatchStats{Skipped: 1}, stats)
}

func (s *PersistenceServiceTestSuite) TestSaveBatch_Empty() {
	stats, err := s.service.SaveBatch(s.ctx, nil)
	s.Require().NoError(err)
	s.Equal(domain.BatchStats{}, stats)
}

func (s *PersistenceServiceTestSuite) TestSaveBatch_CancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.service.SaveBatch(ctx, []domain.NewsItem{s.item("newsapi_1", "A")})
	s.ErrorIs(err, context.Canceled)
}

func (s *PersistenceServiceTestSuite) TestSaveBatch_TransactionFailure() {
	ctrl := gomock.NewController(s.T())
	txManager := mocks.NewMockTransactionManager(ctrl)
	service := NewPersistenceService(s.entities, s.news, txManager, testLogger())
	begin := errors.New("begin transaction: connection refused")

	txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).Return(begin)

	_, err := service.SaveBatch(s.ctx, []domain.NewsItem{s.item("newsapi_1", "A")})
	s.ErrorIs(err, begin)
}

func (s *PersistenceServiceTestSuite) TestSaveOne() {
	s.expectResolve()
	item := s.item("newsapi_1", "A")

	s.news.EXPECT().GetByUniqueID(gomock.Any(), "newsapi_1").Return(nil, nil)
	s.news.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, n *domain.News) (bool, error) {
		n.ID = 42
		return true, nil
	})

	saved := s.service.SaveOne(s.ctx, item)
	s.Require().NotNil(saved)
	s.Equal(int64(42), saved.ID)
}

func (s *PersistenceServiceTestSuite) TestSaveOne_FailureReturnsNil() {
	s.expectResolve()

	s.news.EXPECT().GetByUniqueID(gomock.Any(), "newsapi_1").Return(nil, errors.New("boom"))

	s.Nil(s.service.SaveOne(s.ctx, s.item("newsapi_1", "A")))
}
