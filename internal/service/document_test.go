package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"docufy/internal/model"
	"docufy/internal/repository"
	repoMocks "docufy/internal/repository/mocks"
	stampMocks "docufy/internal/stamp/mocks"
	"docufy/internal/storage"
	storeMocks "docufy/internal/storage/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestService(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository, mStamper *stampMocks.MockStamper) DocumentService {
	return NewDocumentService(mStore, mRepo, mStamper, Options{})
}

func TestDocumentService_Upload(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		in         UploadInput
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader
		wantErr    error
		wantErrMsg string
	}{
		{
			name: "happy path",
			in:   UploadInput{FileName: "test.txt", ContentType: "text/plain", Size: 11, UserID: "u1"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				r := strings.NewReader("hello world")
				mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
					return strings.HasPrefix(key, "u1/") && strings.HasSuffix(key, "_test.txt")
				}), r, storage.PutObjectOptions{
					Size:        11,
					ContentType: "text/plain",
					Metadata:    map[string]string{"original-filename": "test.txt"},
				}).Return(storage.ObjectInfo{
					Key:         "u1/1000_test.txt",
					Size:        11,
					ContentType: "text/plain",
				}, nil)

				mRepo.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
					return doc.Status == model.StatusPending &&
						doc.FilePath == "u1/1000_test.txt" &&
						len(doc.CodeID) == 6 &&
						doc.DocType == "additional"
				})).Return(&model.Document{ID: "gen-id", Status: model.StatusPending}, nil)

				return r
			},
			wantErr: nil,
		},
		{
			name: "validation error - nil reader",
			in:   UploadInput{FileName: "test.txt", UserID: "u1"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				return nil
			},
			wantErr: ErrReaderNil,
		},
		{
			name: "validation error - missing user id",
			in:   UploadInput{FileName: "test.txt"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				return strings.NewReader("hello")
			},
			wantErr: ErrUserIDRequired,
		},
		{
			name: "storage error",
			in:   UploadInput{FileName: "test.txt", Size: 5, UserID: "u1"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				r := strings.NewReader("hello")
				mStore.On("Put", ctx, mock.Anything, r, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
				return r
			},
			wantErrMsg: "upload to storage: storage fail",
		},
		{
			name: "repository error with successful rollback",
			in:   UploadInput{FileName: "test.txt", Size: 5, UserID: "u1"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				r := strings.NewReader("hello")
				mStore.On("Put", ctx, mock.Anything, r, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				mRepo.On("Create", ctx, mock.Anything).
					Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, mock.Anything).Return(nil)
				return r
			},
			wantErrMsg: "db save failed: db fail",
		},
		{
			name: "repository error with failed rollback",
			in:   UploadInput{FileName: "test.txt", Size: 5, UserID: "u1"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				r := strings.NewReader("hello")
				mStore.On("Put", ctx, mock.Anything, r, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				mRepo.On("Create", ctx, mock.Anything).
					Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, mock.Anything).Return(errors.New("delete fail"))
				return r
			},
			wantErrMsg: "rollback delete failed: delete fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := newTestService(mStore, mRepo, nil)

			r := tt.setupMocks(mStore, mRepo)

			doc, err := svc.Upload(ctx, r, tt.in)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else if tt.wantErrMsg != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, doc)
			}

			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Upload_WrapsCreateError(t *testing.T) {
	ctx := context.Background()
	errCreate := errors.New("unique violation")

	// Both rollback outcomes must keep the create error reachable via errors.Is.
	for _, tc := range []struct {
		name       string
		rollbackOK bool
	}{
		{"rollback succeeds", true},
		{"rollback fails", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := newTestService(mStore, mRepo, nil)

			mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
				Return(storage.ObjectInfo{Key: "u1/1_test.txt"}, nil)
			mRepo.On("Create", ctx, mock.Anything).Return(nil, errCreate)
			if tc.rollbackOK {
				mStore.On("Delete", ctx, mock.Anything).Return(nil)
			} else {
				mStore.On("Delete", ctx, mock.Anything).Return(errors.New("delete fail"))
			}

			_, err := svc.Upload(ctx, strings.NewReader("hello"),
				UploadInput{FileName: "test.txt", Size: 5, UserID: "u1"})

			assert.ErrorIs(t, err, errCreate)
		})
	}
}

func TestDocumentService_Get(t *testing.T) {
	ctx := context.Background()
	docID := uuid.New().String()

	tests := []struct {
		name       string
		identifier string
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
		checkView  func(t *testing.T, view *model.DocumentView)
	}{
		{
			name:       "happy path - lookup by uuid",
			identifier: docID,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, docID).
					Return(&model.Document{ID: docID, FilePath: "u1/1_a.pdf"}, nil)
				mStore.On("PresignGet", ctx, "u1/1_a.pdf", time.Hour).
					Return("https://signed.example/u1/1_a.pdf", nil)
			},
			checkView: func(t *testing.T, view *model.DocumentView) {
				assert.Equal(t, docID, view.ID)
				assert.Equal(t, "https://signed.example/u1/1_a.pdf", view.FileURL)
			},
		},
		{
			name:       "happy path - lookup by code, case-insensitive",
			identifier: "ab12cd",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByCode", ctx, "AB12CD").
					Return(&model.Document{ID: docID, CodeID: "AB12CD", FilePath: "u1/1_a.pdf"}, nil)
				mStore.On("PresignGet", ctx, "u1/1_a.pdf", time.Hour).
					Return("https://signed.example/u1/1_a.pdf", nil)
			},
			checkView: func(t *testing.T, view *model.DocumentView) {
				assert.Equal(t, "AB12CD", view.CodeID)
			},
		},
		{
			name:       "validation - empty identifier",
			identifier: "",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrIDRequired,
		},
		{
			name:       "not found - mapping sql.ErrNoRows",
			identifier: "ZZZZZZ",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByCode", ctx, "ZZZZZZ").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name:       "presign error",
			identifier: docID,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, docID).
					Return(&model.Document{ID: docID, FilePath: "u1/1_a.pdf"}, nil)
				mStore.On("PresignGet", ctx, "u1/1_a.pdf", time.Hour).
					Return("", errors.New("minio down"))
			},
			wantErr: errors.New("presign document url: minio down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := newTestService(mStore, mRepo, nil)

			tt.setupMocks(mStore, mRepo)

			view, err := svc.Get(ctx, tt.identifier)

			if tt.wantErr != nil {
				if errors.Is(tt.wantErr, ErrIDRequired) || errors.Is(tt.wantErr, ErrNotFound) {
					assert.ErrorIs(t, err, tt.wantErr)
				} else {
					assert.Error(t, err)
					assert.Contains(t, err.Error(), tt.wantErr.Error())
				}
				assert.Nil(t, view)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, view)
				if tt.checkView != nil {
					tt.checkView(t, view)
				}
			}
			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("no filter uses List", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(nil, mRepo, nil)

		mRepo.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 0}).
			Return(&repository.PageResult[model.Document]{
				Items: []model.Document{{ID: "1"}, {ID: "2"}},
				Total: 2,
			}, nil)

		res, err := svc.List(ctx, "", 0, -1)
		assert.NoError(t, err)
		assert.Len(t, res.Items, 2)
		assert.Equal(t, 2, res.Total)
		mRepo.AssertExpectations(t)
	})

	t.Run("status filter maps wire value to stored value", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(nil, mRepo, nil)

		mRepo.On("ListByStatus", ctx, model.StatusApproved, repository.PageQuery{Limit: 5, Offset: 10}).
			Return(&repository.PageResult[model.Document]{Items: []model.Document{}, Total: 0}, nil)

		_, err := svc.List(ctx, "approved", 5, 10)
		assert.NoError(t, err)
		mRepo.AssertExpectations(t)
	})

	t.Run("invalid status filter", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(nil, mRepo, nil)

		_, err := svc.List(ctx, "archived", 10, 0)
		assert.ErrorIs(t, err, ErrInvalidStatus)
		mRepo.AssertExpectations(t)
	})
}

func TestDocumentService_ListPending(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockDocumentRepository)
	svc := newTestService(nil, mRepo, nil)

	mRepo.On("ListByStatus", ctx, model.StatusPending, repository.PageQuery{}).
		Return(&repository.PageResult[model.Document]{
			Items: []model.Document{{ID: "newest"}, {ID: "older"}},
			Total: 2,
		}, nil)

	items, err := svc.ListPending(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "newest", items[0].ID)
	assert.Equal(t, "older", items[1].ID)
	mRepo.AssertExpectations(t)
}

func TestDocumentService_Approve(t *testing.T) {
	ctx := context.Background()
	docID := uuid.New().String()

	pendingDoc := func() *model.Document {
		return &model.Document{
			ID:          docID,
			CodeID:      "AB12CD",
			UserID:      "u1",
			FilePath:    "u1/1000_scan.pdf",
			ContentType: "application/pdf",
			Status:      model.StatusPending,
		}
	}

	t.Run("happy path", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mStamper := new(stampMocks.MockStamper)
		svc := newTestService(mStore, mRepo, mStamper)

		mRepo.On("FindByID", ctx, docID).Return(pendingDoc(), nil)
		mStore.On("Get", ctx, "u1/1000_scan.pdf").
			Return(io.NopCloser(strings.NewReader("%PDF-orig")), storage.ObjectInfo{}, nil)
		mStamper.On("Stamp", []byte("%PDF-orig"), "application/pdf", "VERIFIED").
			Return([]byte("%PDF-stamped"), nil)
		mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "u1/") && strings.HasSuffix(key, "_1000_scan.pdf")
		}), mock.Anything, mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
			return opt.ContentType == "application/pdf" &&
				opt.Metadata["source-object"] == "u1/1000_scan.pdf"
		})).Return(storage.ObjectInfo{}, nil)
		mRepo.On("UpdateStatus", ctx, docID, mock.MatchedBy(func(upd repository.StatusUpdate) bool {
			return upd.Status == model.StatusApproved &&
				upd.FilePath != nil && *upd.FilePath != "u1/1000_scan.pdf" &&
				upd.VerifiedAt != nil &&
				upd.StampText != nil && *upd.StampText == "VERIFIED"
		}), model.StatusPending).
			Return(&model.Document{ID: docID, Status: model.StatusApproved, FilePath: "u1/2000_1000_scan.pdf"}, nil)
		mStore.On("PresignGet", ctx, "u1/2000_1000_scan.pdf", time.Hour).
			Return("https://signed.example/stamped", nil)

		view, err := svc.Approve(ctx, docID, "VERIFIED")
		assert.NoError(t, err)
		assert.Equal(t, model.StatusApproved, view.Status)
		assert.Equal(t, "https://signed.example/stamped", view.FileURL)
		mStore.AssertExpectations(t)
		mRepo.AssertExpectations(t)
		mStamper.AssertExpectations(t)
	})

	t.Run("empty stamp text uses default", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mStamper := new(stampMocks.MockStamper)
		svc := newTestService(mStore, mRepo, mStamper)

		mRepo.On("FindByID", ctx, docID).Return(pendingDoc(), nil)
		mStore.On("Get", ctx, "u1/1000_scan.pdf").
			Return(io.NopCloser(strings.NewReader("%PDF-orig")), storage.ObjectInfo{}, nil)
		mStamper.On("Stamp", []byte("%PDF-orig"), "application/pdf", "APPROVED").
			Return([]byte("%PDF-stamped"), nil)
		mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{}, nil)
		mRepo.On("UpdateStatus", ctx, docID, mock.Anything, model.StatusPending).
			Return(&model.Document{ID: docID, Status: model.StatusApproved, FilePath: "u1/x"}, nil)
		mStore.On("PresignGet", ctx, "u1/x", time.Hour).Return("https://signed", nil)

		_, err := svc.Approve(ctx, docID, "")
		assert.NoError(t, err)
		mStamper.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo, nil)

		mRepo.On("FindByID", ctx, docID).Return(nil, sql.ErrNoRows)

		_, err := svc.Approve(ctx, docID, "")
		assert.ErrorIs(t, err, ErrNotFound)
		mStore.AssertExpectations(t)
	})

	t.Run("already reviewed - storage never touched", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo, nil)

		doc := pendingDoc()
		doc.Status = model.StatusApproved
		mRepo.On("FindByID", ctx, docID).Return(doc, nil)

		_, err := svc.Approve(ctx, docID, "")
		assert.ErrorIs(t, err, ErrInvalidTransition)
		mStore.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
		mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("source unavailable", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo, nil)

		mRepo.On("FindByID", ctx, docID).Return(pendingDoc(), nil)
		mStore.On("Get", ctx, "u1/1000_scan.pdf").
			Return(nil, storage.ObjectInfo{}, errors.New("object missing"))

		_, err := svc.Approve(ctx, docID, "")
		assert.ErrorIs(t, err, ErrSourceUnavailable)
		mRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unsupported content type - nothing written", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mStamper := new(stampMocks.MockStamper)
		svc := newTestService(mStore, mRepo, mStamper)

		doc := pendingDoc()
		doc.ContentType = "text/plain"
		mRepo.On("FindByID", ctx, docID).Return(doc, nil)
		mStore.On("Get", ctx, "u1/1000_scan.pdf").
			Return(io.NopCloser(strings.NewReader("plain")), storage.ObjectInfo{}, nil)
		mStamper.On("Stamp", []byte("plain"), "text/plain", "APPROVED").
			Return(nil, ErrUnsupportedType)

		_, err := svc.Approve(ctx, docID, "")
		assert.ErrorIs(t, err, ErrUnsupportedType)
		mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stamped write fails - record untouched", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mStamper := new(stampMocks.MockStamper)
		svc := newTestService(mStore, mRepo, mStamper)

		mRepo.On("FindByID", ctx, docID).Return(pendingDoc(), nil)
		mStore.On("Get", ctx, "u1/1000_scan.pdf").
			Return(io.NopCloser(strings.NewReader("%PDF-orig")), storage.ObjectInfo{}, nil)
		mStamper.On("Stamp", mock.Anything, mock.Anything, mock.Anything).
			Return([]byte("%PDF-stamped"), nil)
		mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{}, errors.New("bucket full"))

		_, err := svc.Approve(ctx, docID, "")
		assert.ErrorIs(t, err, ErrStorageWriteFailed)
		mRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("lost update race maps to invalid transition", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mStamper := new(stampMocks.MockStamper)
		svc := newTestService(mStore, mRepo, mStamper)

		mRepo.On("FindByID", ctx, docID).Return(pendingDoc(), nil)
		mStore.On("Get", ctx, "u1/1000_scan.pdf").
			Return(io.NopCloser(strings.NewReader("%PDF-orig")), storage.ObjectInfo{}, nil)
		mStamper.On("Stamp", mock.Anything, mock.Anything, mock.Anything).
			Return([]byte("%PDF-stamped"), nil)
		mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{}, nil)
		mRepo.On("UpdateStatus", ctx, docID, mock.Anything, model.StatusPending).
			Return(nil, sql.ErrNoRows)

		_, err := svc.Approve(ctx, docID, "")
		assert.ErrorIs(t, err, ErrInvalidTransition)
		mStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestDocumentService_Reject(t *testing.T) {
	ctx := context.Background()
	docID := uuid.New().String()

	t.Run("happy path - file path untouched", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo, nil)

		mRepo.On("FindByID", ctx, docID).
			Return(&model.Document{ID: docID, FilePath: "u1/1000_scan.pdf", Status: model.StatusPending}, nil)
		mRepo.On("UpdateStatus", ctx, docID, mock.MatchedBy(func(upd repository.StatusUpdate) bool {
			return upd.Status == model.StatusRejected &&
				upd.FilePath == nil &&
				upd.RejectedReason != nil && *upd.RejectedReason == "illegible"
		}), model.StatusPending).
			Return(&model.Document{ID: docID, Status: model.StatusRejected, FilePath: "u1/1000_scan.pdf"}, nil)
		mStore.On("PresignGet", ctx, "u1/1000_scan.pdf", time.Hour).
			Return("https://signed", nil)

		view, err := svc.Reject(ctx, docID, "illegible")
		assert.NoError(t, err)
		assert.Equal(t, model.StatusRejected, view.Status)
		mStore.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
		mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mRepo.AssertExpectations(t)
	})

	t.Run("empty reason leaves column alone", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo, nil)

		mRepo.On("FindByID", ctx, docID).
			Return(&model.Document{ID: docID, FilePath: "p", Status: model.StatusPending}, nil)
		mRepo.On("UpdateStatus", ctx, docID, repository.StatusUpdate{Status: model.StatusRejected}, model.StatusPending).
			Return(&model.Document{ID: docID, Status: model.StatusRejected, FilePath: "p"}, nil)
		mStore.On("PresignGet", ctx, "p", time.Hour).Return("https://signed", nil)

		_, err := svc.Reject(ctx, docID, "")
		assert.NoError(t, err)
		mRepo.AssertExpectations(t)
	})

	t.Run("already reviewed", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(nil, mRepo, nil)

		mRepo.On("FindByID", ctx, docID).
			Return(&model.Document{ID: docID, Status: model.StatusRejected}, nil)

		_, err := svc.Reject(ctx, docID, "")
		assert.ErrorIs(t, err, ErrInvalidTransition)
		mRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDocumentService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	docID := uuid.New().String()

	t.Run("invalid status value", func(t *testing.T) {
		svc := newTestService(nil, new(repoMocks.MockDocumentRepository), nil)

		_, err := svc.UpdateStatus(ctx, docID, "archived")
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("rejected dispatches to Reject", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo, nil)

		mRepo.On("FindByID", ctx, docID).
			Return(&model.Document{ID: docID, FilePath: "p", Status: model.StatusPending}, nil)
		mRepo.On("UpdateStatus", ctx, docID, repository.StatusUpdate{Status: model.StatusRejected}, model.StatusPending).
			Return(&model.Document{ID: docID, Status: model.StatusRejected, FilePath: "p"}, nil)
		mStore.On("PresignGet", ctx, "p", time.Hour).Return("https://signed", nil)

		view, err := svc.UpdateStatus(ctx, docID, "Rejected")
		assert.NoError(t, err)
		assert.Equal(t, model.StatusRejected, view.Status)
		mRepo.AssertExpectations(t)
	})

	t.Run("pending echoes a still-pending record", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo, nil)

		mRepo.On("FindByID", ctx, docID).
			Return(&model.Document{ID: docID, FilePath: "p", Status: model.StatusPending}, nil)
		mStore.On("PresignGet", ctx, "p", time.Hour).Return("https://signed", nil)

		view, err := svc.UpdateStatus(ctx, docID, "pending")
		assert.NoError(t, err)
		assert.Equal(t, model.StatusPending, view.Status)
		mRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("pending on a reviewed record fails", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(nil, mRepo, nil)

		mRepo.On("FindByID", ctx, docID).
			Return(&model.Document{ID: docID, Status: model.StatusApproved}, nil)

		_, err := svc.UpdateStatus(ctx, docID, "pending")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestStampedKey(t *testing.T) {
	at := time.UnixMilli(1700000000000).UTC()
	key := stampedKey("u1/1000_scan.pdf", at)
	assert.Equal(t, "u1/1700000000000_1000_scan.pdf", key)

	// Objects at the bucket root stay at the root.
	key = stampedKey("scan.pdf", at)
	assert.Equal(t, "1700000000000_scan.pdf", key)
}
