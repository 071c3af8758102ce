// Package testutil provides shared in-memory test doubles of both stores and
// of the external collaborators.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"geosm/internal/models"
	"geosm/internal/repository"
)

type relState struct {
	seq      map[string]uint
	users    map[uint]models.User
	logins   map[uint]models.LoginHistory
	tokens   map[string]models.AccessToken
	codes    map[uint]models.AuthCode
	bans     map[uint]models.BanHistory
	events   map[uint]models.Event
	reports  map[uint]models.Report
	messages map[uint]models.Message
	posts    map[uint]models.PostRecord
	comments map[uint]models.CommentRecord
	settings *models.Settings
}

func newRelState() *relState {
	return &relState{
		seq:      map[string]uint{},
		users:    map[uint]models.User{},
		logins:   map[uint]models.LoginHistory{},
		tokens:   map[string]models.AccessToken{},
		codes:    map[uint]models.AuthCode{},
		bans:     map[uint]models.BanHistory{},
		events:   map[uint]models.Event{},
		reports:  map[uint]models.Report{},
		messages: map[uint]models.Message{},
		posts:    map[uint]models.PostRecord{},
		comments: map[uint]models.CommentRecord{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *relState) clone() *relState {
	c := &relState{
		seq:      cloneMap(s.seq),
		users:    cloneMap(s.users),
		logins:   cloneMap(s.logins),
		tokens:   cloneMap(s.tokens),
		codes:    cloneMap(s.codes),
		bans:     cloneMap(s.bans),
		events:   cloneMap(s.events),
		reports:  cloneMap(s.reports),
		messages: cloneMap(s.messages),
		posts:    cloneMap(s.posts),
		comments: cloneMap(s.comments),
	}
	if s.settings != nil {
		v := *s.settings
		c.settings = &v
	}
	return c
}

func (s *relState) next(table string) uint {
	s.seq[table]++
	return s.seq[table]
}

// RelStore is an in-memory repository.Store. A transaction holds the store
// lock from Begin until Commit or Rollback and works on a snapshot, so
// transactions are serializable.
type RelStore struct {
	mu    sync.Mutex
	state *relState

	// BeginErr and CommitErr, when set, fail the next Begin or Commit.
	BeginErr  error
	CommitErr error

	Commits   int
	Rollbacks int
}

// NewRelStore returns an empty store.
func NewRelStore() *RelStore {
	return &RelStore{state: newRelState()}
}

func (s *RelStore) Begin(_ context.Context) (repository.Tx, error) {
	s.mu.Lock()
	if s.BeginErr != nil {
		err := s.BeginErr
		s.BeginErr = nil
		s.mu.Unlock()
		return nil, models.NewStoreError(err)
	}
	return &relTx{store: s, st: s.state.clone()}, nil
}

// Snapshot runs fn against the committed state. It must not be called while
// a transaction from the same goroutine is open.
func (s *RelStore) Snapshot(fn func(repository.Tx)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&relTx{store: s, st: s.state.clone(), done: true})
}

// User returns the committed identity row.
func (s *RelStore) User(id uint) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.state.users[id]
	return u, ok
}

// Events returns committed events of one type for a user.
func (s *RelStore) Events(userID uint, eventType models.EventType) []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, e := range s.state.events {
		if e.UserID == userID && e.Type == eventType {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out
}

// Report returns the committed report row.
func (s *RelStore) Report(id uint) (models.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.state.reports[id]
	return r, ok
}

// Reports returns every committed report ordered by id.
func (s *RelStore) Reports() []models.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Report, 0, len(s.state.reports))
	for _, r := range s.state.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReportID < out[j].ReportID })
	return out
}

// TokenCount returns the number of committed tokens of a user.
func (s *RelStore) TokenCount(userID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.state.tokens {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

// AuthCodes returns the committed codes of a user.
func (s *RelStore) AuthCodes(userID uint) []models.AuthCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AuthCode
	for _, c := range s.state.codes {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out
}

// ExpireEvents moves every committed event deadline to at.
func (s *RelStore) ExpireEvents(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.state.events {
		e.ValidTime = at
		s.state.events[id] = e
	}
}

type relTx struct {
	store *RelStore
	st    *relState
	done  bool
}

func (t *relTx) Commit() error {
	if t.done {
		return models.NewStoreError(errTxDone)
	}
	t.done = true
	defer t.store.mu.Unlock()
	if t.store.CommitErr != nil {
		err := t.store.CommitErr
		t.store.CommitErr = nil
		t.store.Rollbacks++
		return models.NewStoreError(err)
	}
	t.store.state = t.st
	t.store.Commits++
	return nil
}

func (t *relTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.Rollbacks++
	t.store.mu.Unlock()
	return nil
}

func (t *relTx) Users() repository.UserRepository         { return relUsers{t.st} }
func (t *relTx) Sessions() repository.SessionRepository   { return relSessions{t.st} }
func (t *relTx) AuthCodes() repository.AuthCodeRepository { return relCodes{t.st} }
func (t *relTx) Bans() repository.BanRepository           { return relBans{t.st} }
func (t *relTx) Events() repository.EventRepository       { return relEvents{t.st} }
func (t *relTx) Reports() repository.ReportRepository     { return relReports{t.st} }
func (t *relTx) Messages() repository.MessageRepository   { return relMessages{t.st} }
func (t *relTx) Content() repository.ContentRepository    { return relContent{t.st} }
func (t *relTx) Settings() repository.SettingsRepository  { return relSettings{t.st} }

// Cascades mirror the ON DELETE rules of the SQL schema.

func (s *relState) deleteUser(id uint) {
	delete(s.users, id)
	for k, v := range s.logins {
		if v.UserID == id {
			delete(s.logins, k)
		}
	}
	for k, v := range s.tokens {
		if v.UserID == id {
			delete(s.tokens, k)
		}
	}
	for k, v := range s.codes {
		if v.UserID == id {
			delete(s.codes, k)
		}
	}
	for k, v := range s.bans {
		if v.UserID == id {
			s.deleteBan(k)
		} else if v.ModeratorID != nil && *v.ModeratorID == id {
			v.ModeratorID = nil
			s.bans[k] = v
		}
	}
	for k, v := range s.events {
		if v.UserID == id {
			delete(s.events, k)
		}
	}
	for k, v := range s.posts {
		if v.UserID == id {
			s.deletePost(k)
		}
	}
	for k, v := range s.comments {
		if v.UserID == id {
			s.deleteComment(k)
		}
	}
	for k, v := range s.messages {
		if v.SenderID == id || v.ReceiverID == id {
			s.deleteMessage(k)
		}
	}
	for k, v := range s.reports {
		changed := false
		if v.CreatorID != nil && *v.CreatorID == id {
			v.CreatorID = nil
			changed = true
		}
		if v.ModeratorID != nil && *v.ModeratorID == id {
			v.ModeratorID = nil
			changed = true
		}
		if changed {
			s.reports[k] = v
		}
	}
}

func (s *relState) deleteBan(id uint) {
	delete(s.bans, id)
	for k, v := range s.events {
		if v.BanID != nil && *v.BanID == id {
			delete(s.events, k)
		}
	}
}

func (s *relState) deletePost(id uint) {
	delete(s.posts, id)
	for k, v := range s.comments {
		if v.PostID == id {
			s.deleteComment(k)
		}
	}
	for k, v := range s.reports {
		if v.PostID != nil && *v.PostID == id {
			s.deleteReport(k)
		}
	}
}

func (s *relState) deleteComment(id uint) {
	delete(s.comments, id)
	for k, v := range s.reports {
		if v.CommentID != nil && *v.CommentID == id {
			s.deleteReport(k)
		}
	}
}

func (s *relState) deleteMessage(id uint) {
	delete(s.messages, id)
	for k, v := range s.reports {
		if v.MessageID != nil && *v.MessageID == id {
			s.deleteReport(k)
		}
	}
}

func (s *relState) deleteReport(id uint) {
	delete(s.reports, id)
	for k, v := range s.events {
		if v.ReportID != nil && *v.ReportID == id {
			delete(s.events, k)
		}
	}
}

type relUsers struct{ st *relState }

func (r relUsers) Create(_ context.Context, user *models.User) error {
	for _, u := range r.st.users {
		if u.Username == user.Username {
			return models.NewConflictError("Username already taken")
		}
	}
	user.UserID = r.st.next("users")
	if user.Status == "" {
		user.Status = models.StatusRegistered
	}
	if user.RoleID == 0 {
		user.RoleID = models.RoleUser
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	r.st.users[user.UserID] = *user
	return nil
}

func (r relUsers) GetByID(_ context.Context, id uint) (*models.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	return &u, nil
}

func (r relUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range r.st.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, models.NewNotFoundError("User", username)
}

func (r relUsers) TransitionStatus(_ context.Context, id uint, from, to models.UserStatus) (bool, error) {
	u, ok := r.st.users[id]
	if !ok || u.Status != from {
		return false, nil
	}
	u.Status = to
	r.st.users[id] = u
	return true, nil
}

func (r relUsers) update(id uint, fn func(*models.User)) error {
	u, ok := r.st.users[id]
	if !ok {
		return models.NewNotFoundError("User", id)
	}
	fn(&u)
	r.st.users[id] = u
	return nil
}

func (r relUsers) SetStatus(_ context.Context, id uint, status models.UserStatus) error {
	return r.update(id, func(u *models.User) { u.Status = status })
}

func (r relUsers) UpdatePassword(_ context.Context, id uint, digest string) error {
	return r.update(id, func(u *models.User) { u.Password = digest })
}

func (r relUsers) UpdateEmail(_ context.Context, id uint, email *string) error {
	return r.update(id, func(u *models.User) { u.Email = email })
}

func (r relUsers) UpdatePhone(_ context.Context, id uint, country, number *string) error {
	return r.update(id, func(u *models.User) {
		u.PhoneCountry = country
		u.PhoneNumber = number
	})
}

func (r relUsers) UpdateRole(_ context.Context, id uint, role models.Role) error {
	return r.update(id, func(u *models.User) { u.RoleID = role })
}

func (r relUsers) Delete(_ context.Context, id uint) error {
	if _, ok := r.st.users[id]; !ok {
		return models.NewNotFoundError("User", id)
	}
	r.st.deleteUser(id)
	return nil
}

func (r relUsers) DeleteIfRegistered(_ context.Context, id uint) (bool, error) {
	u, ok := r.st.users[id]
	if !ok || u.Status != models.StatusRegistered {
		return false, nil
	}
	r.st.deleteUser(id)
	return true, nil
}

func (r relUsers) AdminExists(_ context.Context) (bool, error) {
	for _, u := range r.st.users {
		if u.RoleID == models.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

type relSessions struct{ st *relState }

func (r relSessions) CreateLogin(_ context.Context, userID uint, at time.Time) (*models.LoginHistory, error) {
	login := models.LoginHistory{LoginID: r.st.next("login_history"), UserID: userID, Date: at}
	r.st.logins[login.LoginID] = login
	return &login, nil
}

func (r relSessions) CreateToken(_ context.Context, token *models.AccessToken) error {
	if _, ok := r.st.tokens[token.Value]; ok {
		return models.NewConflictError("Access token already exists")
	}
	token.TokenID = r.st.next("access_tokens")
	r.st.tokens[token.Value] = *token
	return nil
}

func (r relSessions) GetToken(_ context.Context, value string) (*models.AccessToken, error) {
	t, ok := r.st.tokens[value]
	if !ok {
		return nil, models.NewNotFoundError("Access token", "")
	}
	return &t, nil
}

func (r relSessions) DeleteToken(_ context.Context, value string) error {
	if _, ok := r.st.tokens[value]; !ok {
		return models.NewNotFoundError("Access token", "")
	}
	delete(r.st.tokens, value)
	return nil
}

func (r relSessions) DeleteUserTokens(_ context.Context, userID uint) (int64, error) {
	var n int64
	for k, v := range r.st.tokens {
		if v.UserID == userID {
			delete(r.st.tokens, k)
			n++
		}
	}
	return n, nil
}

type relCodes struct{ st *relState }

func (r relCodes) Create(_ context.Context, code *models.AuthCode) error {
	code.CodeID = r.st.next("auth_codes")
	r.st.codes[code.CodeID] = *code
	return nil
}

func (r relCodes) Match(_ context.Context, userID uint, value string, codeType models.AuthCodeType, now time.Time) (bool, error) {
	for _, c := range r.st.codes {
		if c.UserID == userID && c.Value == value && c.Type == codeType && c.ValidTime.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (r relCodes) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for k, c := range r.st.codes {
		if !c.ValidTime.After(now) {
			delete(r.st.codes, k)
			n++
		}
	}
	return n, nil
}

type relBans struct{ st *relState }

func (r relBans) Create(_ context.Context, ban *models.BanHistory) error {
	ban.BanID = r.st.next("ban_history")
	r.st.bans[ban.BanID] = *ban
	return nil
}

func (r relBans) GetByID(_ context.Context, id uint) (*models.BanHistory, error) {
	b, ok := r.st.bans[id]
	if !ok {
		return nil, models.NewNotFoundError("Ban", id)
	}
	return &b, nil
}

func (r relBans) GetActive(_ context.Context, userID uint) (*models.BanHistory, error) {
	var found *models.BanHistory
	for _, e := range r.st.events {
		if e.Type != models.EventBan || e.BanID == nil {
			continue
		}
		b, ok := r.st.bans[*e.BanID]
		if !ok || b.UserID != userID {
			continue
		}
		if found == nil || b.DateEnd.After(found.DateEnd) {
			v := b
			found = &v
		}
	}
	if found == nil {
		return nil, models.NewNotFoundError("Ban", userID)
	}
	return found, nil
}

func (r relBans) Delete(_ context.Context, id uint) error {
	if _, ok := r.st.bans[id]; !ok {
		return models.NewNotFoundError("Ban", id)
	}
	r.st.deleteBan(id)
	return nil
}

func (r relBans) DeleteForUser(_ context.Context, userID uint) (int64, error) {
	var n int64
	for k, b := range r.st.bans {
		if b.UserID == userID {
			r.st.deleteBan(k)
			n++
		}
	}
	return n, nil
}

type relEvents struct{ st *relState }

func (r relEvents) Create(_ context.Context, event *models.Event) error {
	event.EventID = r.st.next("events")
	r.st.events[event.EventID] = *event
	return nil
}

func (r relEvents) GetByID(_ context.Context, id uint) (*models.Event, error) {
	e, ok := r.st.events[id]
	if !ok {
		return nil, models.NewNotFoundError("Event", id)
	}
	return &e, nil
}

func (r relEvents) ListExpired(_ context.Context, now time.Time, limit int) ([]models.Event, error) {
	var out []models.Event
	for _, e := range r.st.events {
		if !e.ValidTime.After(now) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ValidTime.Equal(out[j].ValidTime) {
			return out[i].ValidTime.Before(out[j].ValidTime)
		}
		return out[i].EventID < out[j].EventID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r relEvents) Delete(_ context.Context, id uint) (bool, error) {
	if _, ok := r.st.events[id]; !ok {
		return false, nil
	}
	delete(r.st.events, id)
	return true, nil
}

func (r relEvents) DeleteForUser(_ context.Context, userID uint, eventType models.EventType) (int64, error) {
	var n int64
	for k, e := range r.st.events {
		if e.UserID == userID && e.Type == eventType {
			delete(r.st.events, k)
			n++
		}
	}
	return n, nil
}

func (r relEvents) DeleteForReport(_ context.Context, reportID uint) (int64, error) {
	var n int64
	for k, e := range r.st.events {
		if e.Type == models.EventLockedReport && e.ReportID != nil && *e.ReportID == reportID {
			delete(r.st.events, k)
			n++
		}
	}
	return n, nil
}

func (r relEvents) CountForUser(_ context.Context, userID uint, eventType models.EventType, excludeID uint) (int64, error) {
	var n int64
	for _, e := range r.st.events {
		if e.UserID == userID && e.Type == eventType && e.EventID != excludeID {
			n++
		}
	}
	return n, nil
}

type relReports struct{ st *relState }

func (r relReports) Create(_ context.Context, report *models.Report) error {
	n := 0
	for _, id := range []*uint{report.PostID, report.CommentID, report.MessageID} {
		if id != nil {
			n++
		}
	}
	if n != 1 {
		return models.NewStoreError(errSingleTarget)
	}
	if report.Status == "" {
		report.Status = models.ReportActive
	}
	report.ReportID = r.st.next("reports")
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}
	r.st.reports[report.ReportID] = *report
	return nil
}

func (r relReports) GetByID(_ context.Context, id uint) (*models.Report, error) {
	rep, ok := r.st.reports[id]
	if !ok {
		return nil, models.NewNotFoundError("Report", id)
	}
	return &rep, nil
}

func (r relReports) ClaimOldest(_ context.Context, reportType models.ReportType, moderatorID uint) (*models.Report, error) {
	var oldest *models.Report
	for _, rep := range r.st.reports {
		if rep.Status != models.ReportActive || rep.Type != reportType {
			continue
		}
		if oldest == nil || rep.ReportID < oldest.ReportID {
			v := rep
			oldest = &v
		}
	}
	if oldest == nil {
		return nil, models.NewNotFoundError("Report", reportType)
	}
	mod := moderatorID
	oldest.Status = models.ReportLocked
	oldest.ModeratorID = &mod
	r.st.reports[oldest.ReportID] = *oldest
	return oldest, nil
}

func (r relReports) isHeld(id, moderatorID uint) (models.Report, bool) {
	rep, ok := r.st.reports[id]
	if !ok || rep.Status != models.ReportLocked || rep.ModeratorID == nil || *rep.ModeratorID != moderatorID {
		return models.Report{}, false
	}
	return rep, true
}

func (r relReports) DeleteHeld(_ context.Context, id, moderatorID uint) (bool, error) {
	if _, ok := r.isHeld(id, moderatorID); !ok {
		return false, nil
	}
	r.st.deleteReport(id)
	return true, nil
}

func (r relReports) ResolveHeld(_ context.Context, id, moderatorID uint) (bool, error) {
	rep, ok := r.isHeld(id, moderatorID)
	if !ok {
		return false, nil
	}
	rep.Status = models.ReportResolved
	rep.ModeratorID = nil
	r.st.reports[id] = rep
	return true, nil
}

func (r relReports) ReleaseHeld(_ context.Context, id, moderatorID uint) (bool, error) {
	rep, ok := r.isHeld(id, moderatorID)
	if !ok {
		return false, nil
	}
	rep.Status = models.ReportActive
	rep.ModeratorID = nil
	r.st.reports[id] = rep
	return true, nil
}

func (r relReports) Unlock(_ context.Context, id uint) (bool, error) {
	rep, ok := r.st.reports[id]
	if !ok || rep.Status != models.ReportLocked {
		return false, nil
	}
	rep.Status = models.ReportActive
	rep.ModeratorID = nil
	r.st.reports[id] = rep
	return true, nil
}

func (r relReports) UnlockHeldBy(_ context.Context, moderatorID uint) (int64, error) {
	var n int64
	for id, rep := range r.st.reports {
		if rep.Status != models.ReportLocked || rep.ModeratorID == nil || *rep.ModeratorID != moderatorID {
			continue
		}
		rep.Status = models.ReportActive
		rep.ModeratorID = nil
		r.st.reports[id] = rep
		n++
	}
	return n, nil
}

type relMessages struct{ st *relState }

func (r relMessages) Create(_ context.Context, message *models.Message) error {
	message.MessageID = r.st.next("messages")
	r.st.messages[message.MessageID] = *message
	return nil
}

func (r relMessages) GetByID(_ context.Context, id uint) (*models.Message, error) {
	m, ok := r.st.messages[id]
	if !ok {
		return nil, models.NewNotFoundError("Message", id)
	}
	return &m, nil
}

func (r relMessages) ListConversation(_ context.Context, a, b uint, limit int) ([]models.Message, error) {
	var out []models.Message
	for _, m := range r.st.messages {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].MessageID > out[j].MessageID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r relMessages) Delete(_ context.Context, id uint) error {
	if _, ok := r.st.messages[id]; !ok {
		return models.NewNotFoundError("Message", id)
	}
	r.st.deleteMessage(id)
	return nil
}

type relContent struct{ st *relState }

func (r relContent) CreatePost(_ context.Context, userID uint) (*models.PostRecord, error) {
	if _, ok := r.st.users[userID]; !ok {
		return nil, models.NewStoreError(errForeignKey)
	}
	row := models.PostRecord{PostID: r.st.next("posts"), UserID: userID}
	r.st.posts[row.PostID] = row
	return &row, nil
}

func (r relContent) GetPost(_ context.Context, id uint) (*models.PostRecord, error) {
	row, ok := r.st.posts[id]
	if !ok {
		return nil, models.NewNotFoundError("Post", id)
	}
	return &row, nil
}

func (r relContent) DeletePost(_ context.Context, id uint) error {
	if _, ok := r.st.posts[id]; !ok {
		return models.NewNotFoundError("Post", id)
	}
	r.st.deletePost(id)
	return nil
}

func (r relContent) CreateComment(_ context.Context, postID, userID uint) (*models.CommentRecord, error) {
	if _, ok := r.st.posts[postID]; !ok {
		return nil, models.NewStoreError(errForeignKey)
	}
	row := models.CommentRecord{CommentID: r.st.next("comments"), PostID: postID, UserID: userID}
	r.st.comments[row.CommentID] = row
	return &row, nil
}

func (r relContent) GetComment(_ context.Context, id uint) (*models.CommentRecord, error) {
	row, ok := r.st.comments[id]
	if !ok {
		return nil, models.NewNotFoundError("Comment", id)
	}
	return &row, nil
}

func (r relContent) DeleteComment(_ context.Context, id uint) error {
	if _, ok := r.st.comments[id]; !ok {
		return models.NewNotFoundError("Comment", id)
	}
	r.st.deleteComment(id)
	return nil
}

type relSettings struct{ st *relState }

func (r relSettings) Get(_ context.Context, fallback models.Settings) (models.Settings, error) {
	if r.st.settings == nil {
		fallback.SettingsID = models.SettingsRowID
		return fallback, nil
	}
	return *r.st.settings, nil
}

func (r relSettings) Save(_ context.Context, settings models.Settings) error {
	settings.SettingsID = models.SettingsRowID
	r.st.settings = &settings
	return nil
}
