package services

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"nlu-service/internal/adapters/secondary/filestore"
	"nlu-service/internal/adapters/secondary/parser"
	"nlu-service/internal/core/domain"
	"nlu-service/internal/testutil"
)

type fixture struct {
	root      string
	store     *filestore.Store
	trainer   *testutil.MockTrainer
	cache     *ModelCache
	locks     *TenantLocks
	lifecycle *LifecycleService
	query     *QueryService
}

func newFixture(t *testing.T, cfg LifecycleConfig, history *TrainingRunService) *fixture {
	t.Helper()
	root := filepath.Join(t.TempDir(), "apps")
	trainer := new(testutil.MockTrainer)
	store, err := filestore.New(root, trainer)
	require.NoError(t, err)

	cache := NewModelCache(0)
	locks := NewTenantLocks()
	return &fixture{
		root:      root,
		store:     store,
		trainer:   trainer,
		cache:     cache,
		locks:     locks,
		lifecycle: NewLifecycleService(store, parser.New(), trainer, cache, locks, history, cfg),
		query:     NewQueryService(store, trainer, cache, locks),
	}
}

// upload encodes examples as a bare JSON snapshot, one intent per text.
func upload(t *testing.T, examples ...domain.Example) domain.Upload {
	t.Helper()
	data, err := json.Marshal(domain.Snapshot{Examples: examples})
	require.NoError(t, err)
	return domain.Upload{Files: []domain.UploadFile{{Name: "data.json", Data: data}}}
}

var (
	exHello = domain.Example{Text: "hello", Intent: "greet"}
	exBye   = domain.Example{Text: "bye", Intent: "goodbye"}
	exFly   = domain.Example{Text: "fly to rome", Intent: "travel", Entities: []domain.EntitySpan{{Start: 7, End: 11, Entity: "city"}}}
)

func (f *fixture) createApp(t *testing.T) string {
	t.Helper()
	id, err := f.lifecycle.CreateApplication(context.Background())
	require.NoError(t, err)
	return id
}

func TestUpdateApplication_IdempotentRetraining(t *testing.T) {
	f := newFixture(t, LifecycleConfig{}, nil)
	f.trainer.On("Train", mock.Anything, mock.Anything).Return(&domain.ModelPair{Classifier: "c1", Extractor: "e1"}, nil)
	f.trainer.On("Save", mock.Anything, mock.Anything).Return(nil)
	id := f.createApp(t)

	res, err := f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: id, Upload: upload(t, exHello, exFly)})
	require.NoError(t, err)
	assert.Equal(t, domain.TrainingOutcomeSucceeded, res.Outcome)
	assert.Equal(t, id, res.TenantID)

	res, err = f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: id, Upload: upload(t, exHello, exFly)})
	require.NoError(t, err)
	assert.Equal(t, domain.TrainingOutcomeSkipped, res.Outcome)

	f.trainer.AssertNumberOfCalls(t, "Train", 1)
}

func TestUpdateApplication_ReorderedDataIsUnchanged(t *testing.T) {
	f := newFixture(t, LifecycleConfig{}, nil)
	f.trainer.On("Train", mock.Anything, mock.Anything).Return(&domain.ModelPair{Classifier: "c1", Extractor: "e1"}, nil)
	f.trainer.On("Save", mock.Anything, mock.Anything).Return(nil)
	id := f.createApp(t)

	_, err := f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: id, Upload: upload(t, exHello, exBye, exFly)})
	require.NoError(t, err)
	res, err := f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: id, Upload: upload(t, exFly, exBye, exHello)})
	require.NoError(t, err)

	assert.Equal(t, domain.TrainingOutcomeSkipped, res.Outcome)
	f.trainer.AssertNumberOfCalls(t, "Train", 1)
}

func TestUpdateApplication_ForceRetrains(t *testing.T) {
	f := newFixture(t, LifecycleConfig{}, nil)
	f.trainer.On("Train", mock.Anything, mock.Anything).Return(&domain.ModelPair{Classifier: "c1", Extractor: "e1"}, nil)
	f.trainer.On("Save", mock.Anything, mock.Anything).Return(nil)
	id := f.createApp(t)

	_, err := f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: id, Upload: upload(t, exHello)})
	require.NoError(t, err)
	res, err := f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: id, Upload: upload(t, exHello), Force: true})
	require.NoError(t, err)

	assert.Equal(t, domain.TrainingOutcomeSucceeded, res.Outcome)
	f.trainer.AssertNumberOfCalls(t, "Train", 2)
}

func TestUpdateApplication_ChangedDataRetrains(t *testing.T) {
	f := newFixture(t, LifecycleConfig{}, nil)
	f.trainer.On("Train", mock.Anything, mock.Anything).Return(&domain.ModelPair{Classifier: "c1", Extractor: "e1"}, nil)
	f.trainer.On("Save", mock.Anything, mock.Anything).Return(nil)
	id := f.createApp(t)

	first, err := f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: id, Upload: upload(t, exHello)})
	require.NoError(t, err)
	second, err := f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: id, Upload: upload(t, exHello, exBye)})
	require.NoError(t, err)

	assert.NotEqual(t, first.SnapshotDigest, second.SnapshotDigest)
	f.trainer.AssertNumberOfCalls(t, "Train", 2)

	pair, ok := f.cache.Get(id)
	require.True(t, ok)
	assert.Equal(t, second.SnapshotDigest, pair.SnapshotDigest)
}

func TestUpdateApplication_ChangedSynonymRetrains(t *testing.T) {
	f := newFixture(t, LifecycleConfig{}, nil)
	f.trainer.On("Train", mock.Anything, mock.Anything).Return(&domain.ModelPair{Classifier: "c1", Extractor: "e1"}, nil)
	f.trainer.On("Save", mock.Anything, mock.Anything).Return(nil)
	id := f.createApp(t)

	synonym := func(value string) domain.Example {
		return domain.Example{Text: "in the center of NYC", Intent: "search", Entities: []domain.EntitySpan{
			{Start: 17, End: 20, Value: value, Entity: "city"},
		}}
	}

	first, err := f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: id, Upload: upload(t, synonym("New York City"))})
	require.NoError(t, err)
	second, err := f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: id, Upload: upload(t, synonym("NY"))})
	require.NoError(t, err)

	assert.Equal(t, domain.TrainingOutcomeSucceeded, first.Outcome)
	assert.Equal(t, domain.TrainingOutcomeSucceeded, second.Outcome)
	assert.NotEqual(t, first.SnapshotDigest, second.SnapshotDigest)
	f.trainer.AssertNumberOfCalls(t, "Train", 2)
}

func TestUpdateApplication_MissingTenant(t *testing.T) {
	f := newFixture(t, LifecycleConfig{}, nil)

	_, err := f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: "never-created", Upload: upload(t, exHello)})
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)

	exists, err := f.store.Exists(context.Background(), "never-created")
	require.NoError(t, err)
	assert.False(t, exists, "update without create must not create the application")
	f.trainer.AssertNotCalled(t, "Train", mock.Anything, mock.Anything)
}

func TestUpdateApplication_CreateIfMissing(t *testing.T) {
	f := newFixture(t, LifecycleConfig{}, nil)
	f.trainer.On("Train", mock.Anything, mock.Anything).Return(&domain.ModelPair{Classifier: "c1", Extractor: "e1"}, nil)
	f.trainer.On("Save", mock.Anything, mock.Anything).Return(nil)

	res, err := f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: "my-app", Upload: upload(t, exHello), CreateIfMissing: true})
	require.NoError(t, err)
	assert.Equal(t, "my-app", res.TenantID)

	exists, err := f.store.Exists(context.Background(), "my-app")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUpdateApplication_BadInput(t *testing.T) {
	f := newFixture(t, LifecycleConfig{}, nil)
	id := f.createApp(t)

	bad := domain.Upload{Files: []domain.UploadFile{{Name: "data.json", Data: []byte(`{"examples": [`)}}}
	_, err := f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: id, Upload: bad})
	assert.ErrorIs(t, err, domain.ErrBadInput)

	_, err = f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: "../x", Upload: upload(t, exHello)})
	assert.ErrorIs(t, err, domain.ErrInvalidTenantID)

	f.trainer.AssertNotCalled(t, "Train", mock.Anything, mock.Anything)
}

func TestUpdateApplication_FailedRetrainKeepsPreviousModel(t *testing.T) {
	f := newFixture(t, LifecycleConfig{}, nil)
	v1 := &domain.ModelPair{Classifier: "c1", Extractor: "e1"}
	f.trainer.On("Train", mock.Anything, mock.Anything).Return(v1, nil).Once()
	f.trainer.On("Train", mock.Anything, mock.Anything).Return(nil, errors.New("out of memory")).Once()
	f.trainer.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.trainer.On("Classify", mock.Anything, "hello").Return(map[string]float64{"greet": 0.9, "goodbye": 0.1}, nil)
	f.trainer.On("Extract", mock.Anything, "hello").Return([]domain.Entity{}, nil)

	appA := f.createApp(t)
	appB := f.createApp(t)
	f.cache.Put(appB, &domain.ModelPair{Classifier: "b", Extractor: "b"})

	_, err := f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: appA, Upload: upload(t, exHello, exBye)})
	require.NoError(t, err)

	_, err = f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: appA, Upload: upload(t, exHello)})
	assert.ErrorIs(t, err, domain.ErrTrainingFailed)

	pred, err := f.query.Query(context.Background(), appA, "hello")
	require.NoError(t, err)
	assert.Equal(t, 0.9, pred.Categories["greet"])

	pair, ok := f.cache.Get(appA)
	require.True(t, ok)
	assert.Equal(t, "c1", pair.Classifier)

	// the cleared snapshot makes the next identical upload retrain
	_, err = f.store.ReadSnapshot(context.Background(), appA)
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	pairB, ok := f.cache.Get(appB)
	require.True(t, ok)
	assert.Equal(t, "b", pairB.Classifier)
}

func TestUpdateApplication_ArtifactWriteFailureKeepsPreviousModel(t *testing.T) {
	f := newFixture(t, LifecycleConfig{}, nil)
	f.trainer.On("Train", mock.Anything, mock.Anything).Return(&domain.ModelPair{Classifier: "c1", Extractor: "e1"}, nil).Once()
	f.trainer.On("Train", mock.Anything, mock.Anything).Return(&domain.ModelPair{Classifier: "c2", Extractor: "e2"}, nil).Once()
	f.trainer.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	f.trainer.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()
	id := f.createApp(t)

	_, err := f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: id, Upload: upload(t, exHello)})
	require.NoError(t, err)
	_, err = f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: id, Upload: upload(t, exBye)})
	assert.ErrorIs(t, err, domain.ErrStorage)

	pair, ok := f.cache.Get(id)
	require.True(t, ok)
	assert.Equal(t, "c1", pair.Classifier)
}

func TestUpdateApplication_TrainingTimeout(t *testing.T) {
	f := newFixture(t, LifecycleConfig{TrainingTimeout: 30 * time.Millisecond}, nil)
	f.trainer.On("Train", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)
	id := f.createApp(t)

	_, err := f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: id, Upload: upload(t, exHello)})
	assert.ErrorIs(t, err, domain.ErrTrainingFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, ok := f.cache.Get(id)
	assert.False(t, ok)
	_, err = f.store.ReadArtifacts(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrModelNotTrained)
}

func TestUpdateApplication_TrainerPanicIsTrainingFailure(t *testing.T) {
	f := newFixture(t, LifecycleConfig{}, nil)
	f.trainer.On("Train", mock.Anything, mock.Anything).Run(func(mock.Arguments) { panic("boom") })
	id := f.createApp(t)

	_, err := f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: id, Upload: upload(t, exHello)})
	assert.ErrorIs(t, err, domain.ErrTrainingFailed)
}

func TestUpdateApplication_RejectWhileTraining(t *testing.T) {
	f := newFixture(t, LifecycleConfig{RejectConcurrent: true}, nil)
	id := f.createApp(t)

	unlock, ok := f.locks.TryLock(id)
	require.True(t, ok)
	defer unlock()

	_, err := f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: id, Upload: upload(t, exHello)})
	assert.ErrorIs(t, err, domain.ErrTrainingInProgress)
}

func TestUpdateApplication_ConcurrentIdenticalUpdatesTrainOnce(t *testing.T) {
	f := newFixture(t, LifecycleConfig{}, nil)
	f.trainer.On("Train", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { time.Sleep(20 * time.Millisecond) }).
		Return(&domain.ModelPair{Classifier: "c1", Extractor: "e1"}, nil)
	f.trainer.On("Save", mock.Anything, mock.Anything).Return(nil)
	id := f.createApp(t)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: id, Upload: upload(t, exHello, exBye)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	f.trainer.AssertNumberOfCalls(t, "Train", 1)
}

func TestUpdateApplication_ConcurrentDifferentUpdatesStayConsistent(t *testing.T) {
	f := newFixture(t, LifecycleConfig{}, nil)
	f.trainer.On("Train", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { time.Sleep(10 * time.Millisecond) }).
		Return(&domain.ModelPair{Classifier: "c", Extractor: "e"}, nil)
	f.trainer.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.trainer.On("Load", mock.Anything).Return(&domain.ModelPair{Classifier: "c", Extractor: "e"}, nil)
	id := f.createApp(t)

	uploads := []domain.Upload{upload(t, exHello), upload(t, exBye), upload(t, exFly)}
	var wg sync.WaitGroup
	for _, u := range uploads {
		wg.Add(1)
		go func(u domain.Upload) {
			defer wg.Done()
			_, err := f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: id, Upload: u})
			assert.NoError(t, err)
		}(u)
	}
	wg.Wait()
	f.trainer.AssertNumberOfCalls(t, "Train", 3)

	snapshot, err := f.store.ReadSnapshot(context.Background(), id)
	require.NoError(t, err)
	digest, err := snapshot.Digest()
	require.NoError(t, err)

	cached, ok := f.cache.Get(id)
	require.True(t, ok)
	persisted, err := f.store.ReadArtifacts(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, digest, cached.SnapshotDigest)
	assert.Equal(t, digest, persisted.SnapshotDigest)
}

func TestUpdateApplication_RecordsHistory(t *testing.T) {
	repo := new(testutil.MockTrainingRunRepo)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.TrainingRun")).Return(nil)

	f := newFixture(t, LifecycleConfig{}, NewTrainingRunService(repo))
	f.trainer.On("Train", mock.Anything, mock.Anything).Return(&domain.ModelPair{Classifier: "c1", Extractor: "e1"}, nil)
	f.trainer.On("Save", mock.Anything, mock.Anything).Return(nil)
	id := f.createApp(t)

	for i := 0; i < 2; i++ {
		_, err := f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: id, Upload: upload(t, exHello)})
		require.NoError(t, err)
	}

	require.Len(t, repo.Calls, 2)
	first := repo.Calls[0].Arguments.Get(1).(*domain.TrainingRun)
	second := repo.Calls[1].Arguments.Get(1).(*domain.TrainingRun)
	assert.Equal(t, domain.TrainingOutcomeSucceeded, first.Outcome)
	assert.Equal(t, domain.TrainingOutcomeSkipped, second.Outcome)
	assert.Equal(t, id, second.TenantID)
	assert.Equal(t, first.SnapshotDigest, second.SnapshotDigest)
}

func TestUpdateApplication_HistoryFailureDoesNotFailUpdate(t *testing.T) {
	repo := new(testutil.MockTrainingRunRepo)
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	f := newFixture(t, LifecycleConfig{}, NewTrainingRunService(repo))
	f.trainer.On("Train", mock.Anything, mock.Anything).Return(&domain.ModelPair{Classifier: "c1", Extractor: "e1"}, nil)
	f.trainer.On("Save", mock.Anything, mock.Anything).Return(nil)
	id := f.createApp(t)

	_, err := f.lifecycle.UpdateApplication(context.Background(), UpdateRequest{TenantID: id, Upload: upload(t, exHello)})
	assert.NoError(t, err)
}
