package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/writersinn/taskhub/internal/cache"
	"github.com/writersinn/taskhub/internal/domain/assignment"
	"github.com/writersinn/taskhub/internal/domain/job"
	"github.com/writersinn/taskhub/internal/domain/task"
	"github.com/writersinn/taskhub/internal/domain/user"
	"github.com/writersinn/taskhub/internal/http/handlers"
	"github.com/writersinn/taskhub/internal/jobs"
	"github.com/writersinn/taskhub/internal/utils"
)

// fakeTx satisfies pgx.Tx so handler tests can run the transactional flow
// without a database.
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *fakeTx) Commit(ctx context.Context) error          { t.committed = true; return nil }
func (t *fakeTx) Rollback(ctx context.Context) error        { t.rolledBack = true; return nil }
func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *fakeTx) Conn() *pgx.Conn                                               { return nil }

type fakeAssignmentsRepo struct {
	tx         *fakeTx
	createTxFn func(ctx context.Context, tx pgx.Tx, userID, taskID string) (assignment.Assignment, error)
	submitTxFn func(ctx context.Context, tx pgx.Tx, assignmentID, userID, filePath string) (assignment.Assignment, error)
	listFn     func(ctx context.Context, userID string) ([]assignment.WithTask, error)
}

func (f *fakeAssignmentsRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	if f.tx == nil {
		f.tx = &fakeTx{}
	}
	return f.tx, nil
}

func (f *fakeAssignmentsRepo) CreateTx(ctx context.Context, tx pgx.Tx, userID, taskID string) (assignment.Assignment, error) {
	if f.createTxFn != nil {
		return f.createTxFn(ctx, tx, userID, taskID)
	}
	return assignment.New(userID, taskID, 6*time.Hour), nil
}

func (f *fakeAssignmentsRepo) SubmitTx(ctx context.Context, tx pgx.Tx, assignmentID, userID, filePath string) (assignment.Assignment, error) {
	if f.submitTxFn != nil {
		return f.submitTxFn(ctx, tx, assignmentID, userID, filePath)
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (f *fakeAssignmentsRepo) ListByUser(ctx context.Context, userID string) ([]assignment.WithTask, error) {
	if f.listFn != nil {
		return f.listFn(ctx, userID)
	}
	return []assignment.WithTask{}, nil
}

type fakeAssignmentUsers struct {
	getByEmailFn func(ctx context.Context, email string) (user.User, error)
	creditFn     func(ctx context.Context, tx pgx.Tx, userID string, amount float64) (float64, error)
}

func (f *fakeAssignmentUsers) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeAssignmentUsers) CreditBalanceTx(ctx context.Context, tx pgx.Tx, userID string, amount float64) (float64, error) {
	if f.creditFn != nil {
		return f.creditFn(ctx, tx, userID, amount)
	}
	return amount, nil
}

type fakeJobsCreator struct {
	createTxFn func(ctx context.Context, tx pgx.Tx, req job.CreateRequest) (job.Job, error)
}

func (f *fakeJobsCreator) CreateTx(ctx context.Context, tx pgx.Tx, req job.CreateRequest) (job.Job, error) {
	if f.createTxFn != nil {
		return f.createTxFn(ctx, tx, req)
	}
	return job.New(req), nil
}

func knownUser(id, email string) *fakeAssignmentUsers {
	return &fakeAssignmentUsers{
		getByEmailFn: func(ctx context.Context, gotEmail string) (user.User, error) {
			if gotEmail == email {
				return user.User{ID: id, Email: email, Name: "Writer"}, nil
			}
			return user.User{}, user.ErrNotFound
		},
	}
}

func jsonPost(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTakeTask(t *testing.T) {
	userID := newUUID()
	taskID := newUUID()

	tasksRepo := &fakeTasksRepo{
		getByIDFn: func(ctx context.Context, id string) (task.Task, error) {
			if id == taskID {
				return task.Task{ID: taskID, Title: "Essay", Price: 150}, nil
			}
			return task.Task{}, task.ErrNotFound
		},
	}

	tests := []struct {
		name           string
		body           string
		repoSetUp      func(*fakeAssignmentsRepo)
		wantStatusCode int
		wantErrCode    string
	}{
		{
			name:           "success",
			body:           `{"email":"writer@example.com","taskId":"` + taskID + `"}`,
			wantStatusCode: http.StatusCreated,
		},
		{
			name: "cooldown active",
			body: `{"email":"writer@example.com","taskId":"` + taskID + `"}`,
			repoSetUp: func(f *fakeAssignmentsRepo) {
				f.createTxFn = func(ctx context.Context, tx pgx.Tx, userID, taskID string) (assignment.Assignment, error) {
					return assignment.Assignment{}, assignment.ErrCooldownActive
				}
			},
			wantStatusCode: http.StatusForbidden,
			wantErrCode:    "cooldown_active",
		},
		{
			name:           "unknown task",
			body:           `{"email":"writer@example.com","taskId":"` + newUUID() + `"}`,
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "unknown user",
			body:           `{"email":"ghost@example.com","taskId":"` + taskID + `"}`,
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "bad task id",
			body:           `{"email":"writer@example.com","taskId":"not-a-uuid"}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeAssignmentsRepo{}
			if tc.repoSetUp != nil {
				tc.repoSetUp(repo)
			}

			var enqueued *job.CreateRequest
			jobsRepo := &fakeJobsCreator{
				createTxFn: func(ctx context.Context, tx pgx.Tx, req job.CreateRequest) (job.Job, error) {
					enqueued = &req
					return job.New(req), nil
				},
			}

			listing := cache.New(time.Minute)
			listing.Set(utils.BuildAvailableTasksCacheKey(userID), []string{"stale"})

			h := handlers.NewAssignmentsHandler(repo, knownUser(userID, "writer@example.com"), tasksRepo, jobsRepo, &fakeUploadStore{}, listing)
			r := setupRouter(http.MethodPost, "/take-task", h.TakeTask)

			w := jsonPost(r, "/take-task", tc.body)

			if w.Code != tc.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tc.wantStatusCode, w.Body.String())
			}

			if tc.wantErrCode != "" {
				var resp struct {
					Error struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshal: %v", err)
				}
				if resp.Error.Code != tc.wantErrCode {
					t.Fatalf("got code %q, want %q", resp.Error.Code, tc.wantErrCode)
				}
			}

			if tc.wantStatusCode == http.StatusCreated {
				var a assignment.Assignment
				if err := json.Unmarshal(w.Body.Bytes(), &a); err != nil {
					t.Fatalf("unmarshal assignment: %v", err)
				}
				if a.Status != assignment.StatusPending {
					t.Fatalf("expected pending, got %s", a.Status)
				}

				wantDeadline := a.CreatedAt.Add(6 * time.Hour)
				if !a.Deadline.Equal(wantDeadline) {
					t.Fatalf("expected deadline %s, got %s", wantDeadline, a.Deadline)
				}

				if enqueued == nil {
					t.Fatalf("expected an assignment notification job")
				}
				if enqueued.Type != string(jobs.JobTaskAssigned) {
					t.Fatalf("unexpected job type %s", enqueued.Type)
				}
				if enqueued.IdempotencyKey == nil || *enqueued.IdempotencyKey != "assignment:assigned:"+a.ID {
					t.Fatalf("unexpected idempotency key %v", enqueued.IdempotencyKey)
				}
				if !repo.tx.committed {
					t.Fatalf("expected the transaction to commit")
				}

				if _, ok := listing.Get(utils.BuildAvailableTasksCacheKey(userID)); ok {
					t.Fatalf("expected the user's availability listing to be evicted")
				}
			}
		})
	}
}

func TestSubmitTask(t *testing.T) {
	userID := newUUID()
	taskID := newUUID()
	assignmentID := newUUID()

	tasksRepo := &fakeTasksRepo{
		getByIDFn: func(ctx context.Context, id string) (task.Task, error) {
			return task.Task{ID: taskID, Title: "Essay", Price: 150}, nil
		},
	}

	tests := []struct {
		name           string
		submitErr      error
		wantStatusCode int
		wantErrCode    string
	}{
		{name: "success", wantStatusCode: http.StatusOK},
		{name: "not owner", submitErr: assignment.ErrNotOwner, wantStatusCode: http.StatusForbidden, wantErrCode: "forbidden"},
		{name: "double submit", submitErr: assignment.ErrAlreadySubmitted, wantStatusCode: http.StatusConflict, wantErrCode: "already_submitted"},
		{name: "unknown assignment", submitErr: assignment.ErrNotFound, wantStatusCode: http.StatusNotFound, wantErrCode: "not_found"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			credits := 0

			repo := &fakeAssignmentsRepo{
				submitTxFn: func(ctx context.Context, tx pgx.Tx, gotAssignmentID, gotUserID, filePath string) (assignment.Assignment, error) {
					if tc.submitErr != nil {
						return assignment.Assignment{}, tc.submitErr
					}
					if gotUserID != userID {
						t.Fatalf("expected submit as %s, got %s", userID, gotUserID)
					}
					fp := filePath
					return assignment.Assignment{
						ID:       gotAssignmentID,
						UserID:   gotUserID,
						TaskID:   taskID,
						Status:   assignment.StatusCompleted,
						FilePath: &fp,
					}, nil
				},
			}

			users := knownUser(userID, "writer@example.com")
			users.creditFn = func(ctx context.Context, tx pgx.Tx, gotUserID string, amount float64) (float64, error) {
				credits++
				if amount != 150 {
					t.Fatalf("expected credit of task price 150, got %v", amount)
				}
				return 150, nil
			}

			var enqueued *job.CreateRequest
			jobsRepo := &fakeJobsCreator{
				createTxFn: func(ctx context.Context, tx pgx.Tx, req job.CreateRequest) (job.Job, error) {
					enqueued = &req
					return job.New(req), nil
				},
			}

			h := handlers.NewAssignmentsHandler(repo, users, tasksRepo, jobsRepo, &fakeUploadStore{}, nil)
			r := setupRouter(http.MethodPost, "/submit-task", h.SubmitTask)

			body, contentType := multipartBody(t, map[string]string{
				"email":        "writer@example.com",
				"assignmentId": assignmentID,
			}, "file", "work.docx", "the finished essay")

			req := httptest.NewRequest(http.MethodPost, "/submit-task", body)
			req.Header.Set("Content-Type", contentType)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tc.wantStatusCode, w.Body.String())
			}

			if tc.wantStatusCode == http.StatusOK {
				if credits != 1 {
					t.Fatalf("expected exactly one balance credit, got %d", credits)
				}
				if enqueued == nil || enqueued.Type != string(jobs.JobSubmissionReceived) {
					t.Fatalf("expected submission.received job, got %+v", enqueued)
				}
				if !repo.tx.committed {
					t.Fatalf("expected the transaction to commit")
				}
			} else {
				if credits != 0 {
					t.Fatalf("no credit expected on failure, got %d", credits)
				}
			}
		})
	}
}

func TestSubmitTask_RequiresFile(t *testing.T) {
	h := handlers.NewAssignmentsHandler(&fakeAssignmentsRepo{}, knownUser(newUUID(), "writer@example.com"), &fakeTasksRepo{}, &fakeJobsCreator{}, &fakeUploadStore{}, nil)
	r := setupRouter(http.MethodPost, "/submit-task", h.SubmitTask)

	body, contentType := multipartBody(t, map[string]string{
		"email":        "writer@example.com",
		"assignmentId": newUUID(),
	}, "", "", "")

	req := httptest.NewRequest(http.MethodPost, "/submit-task", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
	}
}

func TestListAssignmentsForUser(t *testing.T) {
	userID := newUUID()

	repo := &fakeAssignmentsRepo{
		listFn: func(ctx context.Context, gotUserID string) ([]assignment.WithTask, error) {
			if gotUserID != userID {
				t.Fatalf("expected list for %s, got %s", userID, gotUserID)
			}
			return []assignment.WithTask{
				{Assignment: assignment.Assignment{ID: newUUID(), UserID: userID}, Task: task.Task{Title: "Essay"}},
			}, nil
		},
	}

	h := handlers.NewAssignmentsHandler(repo, knownUser(userID, "writer@example.com"), &fakeTasksRepo{}, &fakeJobsCreator{}, &fakeUploadStore{}, nil)
	r := setupRouter(http.MethodGet, "/assignments/:email", h.ListForUser)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/assignments/writer@example.com", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("expected 1 assignment, got %d", resp.Count)
	}
}
