package service

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/contractlens/contractlens/config"
	"github.com/contractlens/contractlens/model"
	"github.com/contractlens/contractlens/view"
	"github.com/google/uuid"
)

// ErrAnalysisRunning is returned when a session already has an analysis in flight
var ErrAnalysisRunning = errors.New("analysis already running")

// Progress is the state of the simulated analysis sequence
type Progress struct {
	Step     int     `json:"step"` // phases completed so far
	Phase    string  `json:"phase"`
	Percent  float64 `json:"percent"`
	Running  bool    `json:"running"`
	Finished bool    `json:"finished"`
	Failed   bool    `json:"failed"`
}

// Session is the view state of one browser
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	machine    *view.Machine
	contractID string
	// Header of the document on the dashboard
	fileName     string
	documentType string
	uploadDate   string
	analysis   *model.Analysis
	progress   Progress
	exporting  bool
	toasts     []model.Toast
	lastSeen   time.Time
	// Last library listing shown to this browser
	library []model.ContractSummary
}

// Snapshot is a read-only copy of a session
type Snapshot struct {
	SessionID    string          `json:"session_id"`
	View         view.Mode       `json:"view"`
	ContractID   string          `json:"contract_id,omitempty"`
	FileName     string          `json:"file_name,omitempty"`
	DocumentType string          `json:"document_type,omitempty"`
	UploadDate   string          `json:"upload_date,omitempty"`
	Progress     Progress        `json:"progress"`
	Exporting    bool            `json:"exporting"`
	Analysis     *model.Analysis `json:"analysis,omitempty"`
	Toasts       []model.Toast   `json:"toasts"`
}

func NewSession(id string) (*Session, error) {
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		lastSeen:  time.Now(),
	}
	// Guards run inside Send, which already holds s.mu.
	m, err := view.NewMachine(func() bool { return s.analysis != nil })
	if err != nil {
		return nil, err
	}
	s.machine = m
	return s, nil
}

func (s *Session) Mode() view.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Current()
}

// Send applies a view event
func (s *Session) Send(event string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send(event)
}

func (s *Session) send(event string) error {
	before := s.machine.Current()
	// The analyzing screen cannot be left while the run is in flight
	if before == view.ModeAnalyzing && s.progress.Running && event == view.EventGoHome {
		return ErrAnalysisRunning
	}
	if err := s.machine.Send(event); err != nil {
		return err
	}
	// Leaving the analyzing screen resets the run so the next upload starts clean.
	if before == view.ModeAnalyzing && s.machine.Current() != view.ModeAnalyzing {
		s.progress.Step = 0
		s.progress.Percent = 0
		s.progress.Phase = ""
		s.progress.Finished = false
		s.progress.Failed = false
	}
	return nil
}

// Uploaded records the document accepted by the analysis service and moves
// to the analyzing screen
func (s *Session) Uploaded(doc model.ContractSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.progress.Running {
		return ErrAnalysisRunning
	}
	if err := s.send(view.EventUploaded); err != nil {
		return err
	}
	s.setDocument(doc)
	s.analysis = nil
	s.progress = Progress{}
	return nil
}

// BeginAnalysis marks a run as started. It fails if one is already running.
func (s *Session) BeginAnalysis() (contractID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.progress.Running {
		return "", ErrAnalysisRunning
	}
	if s.machine.Current() != view.ModeAnalyzing || s.contractID == "" {
		return "", errors.New("no uploaded document waiting for analysis")
	}
	if s.progress.Finished {
		return "", errors.New("analysis already finished")
	}
	s.progress = Progress{Running: true}
	return s.contractID, nil
}

// Advance records that phase step (0-based) has been reached
func (s *Session) Advance(step int, phase string, percent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.Step = step + 1
	s.progress.Phase = phase
	s.progress.Percent = percent
}

// CompleteAnalysis stores the result and opens the dashboard. If the user
// left the analyzing screen meanwhile, the result is kept but the view stays.
func (s *Session) CompleteAnalysis(a *model.Analysis) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.Running = false
	s.progress.Finished = true
	s.analysis = a
	if s.machine.Current() == view.ModeAnalyzing {
		_ = s.send(view.EventAnalysisComplete)
	}
}

// FailAnalysis ends the run without a result; the view stays on analyzing
func (s *Session) FailAnalysis() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.Running = false
	s.progress.Finished = true
	s.progress.Failed = true
}

// LoadContract opens the analysis of a library entry
func (s *Session) LoadContract(a *model.Analysis, entry model.ContractSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine.Current() != view.ModeLibrary {
		return errors.New("contracts can only be opened from the library")
	}
	prev := s.analysis
	s.analysis = a
	if err := s.send(view.EventContractLoaded); err != nil {
		s.analysis = prev
		return err
	}
	entry.ID = a.ContractID
	s.setDocument(entry)
	return nil
}

func (s *Session) setDocument(doc model.ContractSummary) {
	s.contractID = doc.ID
	s.fileName = doc.Filename
	s.documentType = doc.DocumentType
	s.uploadDate = doc.UploadDate
}

// SetLibrary remembers the library listing the browser was shown
func (s *Session) SetLibrary(contracts []model.ContractSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.library = contracts
}

// LibraryEntry finds a contract in the remembered listing
func (s *Session) LibraryEntry(id string) (model.ContractSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.library {
		if c.ID == id {
			return c, true
		}
	}
	return model.ContractSummary{}, false
}

// SetExporting flips the export flag and reports whether it changed
func (s *Session) SetExporting(v bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exporting == v {
		return false
	}
	s.exporting = v
	return true
}

func (s *Session) Analysis() *model.Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analysis
}

func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// PushToast queues a notification for the next render
func (s *Session) PushToast(title, description, variant string) {
	if variant == "" {
		variant = model.ToastDefault
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toasts = append(s.toasts, model.Toast{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Variant:     variant,
	})
}

// DrainToasts returns and clears the queued notifications
func (s *Session) DrainToasts() []model.Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	toasts := s.toasts
	s.toasts = nil
	return toasts
}

// Snapshot copies the session state. Toasts are copied, not drained.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	toasts := make([]model.Toast, len(s.toasts))
	copy(toasts, s.toasts)
	return Snapshot{
		SessionID:    s.ID,
		View:         s.machine.Current(),
		ContractID:   s.contractID,
		FileName:     s.fileName,
		DocumentType: s.documentType,
		UploadDate:   s.uploadDate,
		Progress:     s.progress,
		Exporting:    s.exporting,
		Analysis:     s.analysis,
		Toasts:       toasts,
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) seen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SessionStore is an in-memory store for browser sessions
type SessionStore struct {
	sessions    map[string]*Session
	mu          sync.RWMutex
	maxSessions int // Maximum sessions to keep, 0 = unlimited
}

func NewSessionStore(cfg *config.SessionConfig) *SessionStore {
	maxSessions := cfg.MaxSessions
	if maxSessions < 0 {
		maxSessions = 0
	}
	slog.Info("session store initialized", "max_sessions", maxSessions)
	return &SessionStore{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
	}
}

// Create starts a new session on the home screen
func (s *SessionStore) Create() (*Session, error) {
	sess, err := NewSession(uuid.New().String())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	s.cleanupIfNeeded()
	return sess, nil
}

func (s *SessionStore) Get(id string) *Session {
	s.mu.RLock()
	sess := s.sessions[id]
	s.mu.RUnlock()
	if sess != nil {
		sess.touch()
	}
	return sess
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// cleanupIfNeeded removes the least recently seen sessions if the store
// exceeds maxSessions. Must be called with lock held.
func (s *SessionStore) cleanupIfNeeded() {
	if s.maxSessions <= 0 {
		return // Unlimited
	}

	if len(s.sessions) <= s.maxSessions {
		return
	}

	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].seen().Before(sessions[j].seen())
	})

	removeCount := len(sessions) - s.maxSessions
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning idle session",
			"session_id", sessions[i].ID,
			"created_at", sessions[i].CreatedAt,
		)
		delete(s.sessions, sessions[i].ID)
	}
}

// Count returns the number of sessions in the store
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
