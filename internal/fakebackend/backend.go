// Package fakebackend is an in-process stand-in for the Kitchen Sink REST API,
// used by tests to observe exactly which calls the client makes.
package fakebackend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	RouteLogin         = "POST /api/auth/login"
	RouteRefresh       = "POST /api/auth/refresh-token"
	RouteRegister      = "POST /api/auth/register"
	RouteCheckUsername = "GET /api/auth/check-username"
	RouteGetProfile    = "GET /api/dashboard/profile"
	RouteUpdateProfile = "PUT /api/dashboard/profile"
	RouteListPosts     = "GET /api/posts"
	RouteCreatePost    = "POST /api/posts"
	RouteDeletePost    = "DELETE /api/posts/{postId}"
	RouteAddComment    = "POST /api/posts/{postId}/comments"
	RouteDeleteComment = "DELETE /api/posts/comments/{commentId}"
	RouteAdminUsers    = "GET /api/admin/users"
	RouteAnalytics     = "GET /api/admin/analytics"
	RouteElevate       = "PUT /api/admin/elevate/{username}"
)

// Backend is a fake Kitchen Sink API served over httptest.
type Backend struct {
	*httptest.Server
	Issuer *Issuer

	// RoleAsString makes login answer role as "[ROLE_USER]" instead of a JSON list.
	RoleAsString bool
	// OmitLoginRole drops the role field from the login response.
	OmitLoginRole bool

	mu          sync.Mutex
	mux         *http.ServeMux
	calls       map[string]int
	authHeaders []string
	users       map[string]*member
	access      map[string]string // access token -> username
	refresh     map[string]string // refresh token -> username
	posts       []*post
	nextID      int
	failures    map[string]int
	refreshGate chan struct{}
}

// New starts a fake backend. Close it with Close().
func New(seed ...User) *Backend {
	b := &Backend{
		mux:      http.NewServeMux(),
		calls:    make(map[string]int),
		users:    make(map[string]*member),
		access:   make(map[string]string),
		refresh:  make(map[string]string),
		failures: make(map[string]int),
	}
	b.Server = httptest.NewServer(b.mux)
	b.Issuer = NewIssuer(b.Server.URL + "/realms/kitchensink")
	for _, u := range seed {
		b.AddUser(u)
	}
	b.initRoutes()
	return b
}

// APIURL is the base URL clients should be configured with.
func (b *Backend) APIURL() string {
	return b.Server.URL + "/api"
}

func (b *Backend) initRoutes() {
	b.handle(RouteLogin, b.login)
	b.handle(RouteRefresh, b.refreshToken)
	b.handle(RouteRegister, b.register)
	b.handle(RouteCheckUsername, b.checkUsername)
	b.handle(RouteGetProfile, b.requireAuth(b.getProfile))
	b.handle(RouteUpdateProfile, b.requireAuth(b.updateProfile))
	b.handle(RouteListPosts, b.requireAuth(b.listPosts))
	b.handle(RouteCreatePost, b.requireAuth(b.createPost))
	b.handle(RouteDeletePost, b.requireAuth(b.deletePost))
	b.handle(RouteAddComment, b.requireAuth(b.addComment))
	b.handle(RouteDeleteComment, b.requireAuth(b.deleteComment))
	b.handle(RouteAdminUsers, b.requireAdmin(b.listUsers))
	b.handle(RouteAnalytics, b.requireAdmin(b.analytics))
	b.handle(RouteElevate, b.requireAdmin(b.elevate))
	b.initIssuerRoutes()
}

func (b *Backend) handle(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	b.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[pattern]++
		b.authHeaders = append(b.authHeaders, r.Header.Get("Authorization"))
		status := b.failures[pattern]
		gate := b.refreshGate
		b.mu.Unlock()

		if pattern == RouteRefresh && gate != nil {
			<-gate
		}
		if status != 0 {
			writeJSON(w, status, map[string]interface{}{"message": http.StatusText(status)})
			return
		}
		handler(w, r)
	})
}

// Calls returns how many times a route was hit.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// AuthHeaders returns the Authorization header of every request, in order.
func (b *Backend) AuthHeaders() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.authHeaders...)
}

// FailRoute makes every call to route answer status until cleared with 0.
func (b *Backend) FailRoute(route string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if status == 0 {
		delete(b.failures, route)
		return
	}
	b.failures[route] = status
}

// HoldRefresh blocks refresh calls until the returned release func is called.
func (b *Backend) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.refreshGate = gate
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			b.refreshGate = nil
			b.mu.Unlock()
			close(gate)
		})
	}
}

// RevokeAccessTokens invalidates every issued access token, as expiry would.
func (b *Backend) RevokeAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = make(map[string]string)
}

// IssueSession mints a valid token pair for username without a login call.
func (b *Backend) IssueSession(username string) (accessToken, refreshToken string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked(b.users[username])
}

func (b *Backend) AddUser(u User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	role := "user"
	if u.Admin {
		role = "admin"
	}
	b.nextID++
	b.users[u.Username] = &member{
		MemberID:    int64(b.nextID),
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		UserRole:    role,
		password:    u.Password,
	}
}

func (b *Backend) issueLocked(m *member) (string, string) {
	roles := []string{"ROLE_USER"}
	if m.UserRole == "admin" {
		roles = append(roles, "ROLE_ADMIN")
	}
	accessToken := b.Issuer.AccessToken(m.Username, m.Email, roles)
	b.nextID++
	refreshToken := fmt.Sprintf("refresh-%d-%s", b.nextID, m.Username)
	b.access[accessToken] = m.Username
	b.refresh[refreshToken] = m.Username
	return accessToken, refreshToken
}

func rolesOf(m *member) []string {
	if m.UserRole == "admin" {
		return []string{"ROLE_USER", "ROLE_ADMIN"}
	}
	return []string{"ROLE_USER"}
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserIdentifier string `json:"userIdentifier"`
		Password       string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": "malformed request"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var found *member
	for _, m := range b.users {
		if m.Username == req.UserIdentifier || m.Email == req.UserIdentifier {
			found = m
			break
		}
	}
	if found == nil || found.password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"message": "Invalid credentials"})
		return
	}

	accessToken, refreshToken := b.issueLocked(found)
	resp := map[string]interface{}{
		"memberId":     found.MemberID,
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	}
	switch {
	case b.OmitLoginRole:
	case b.RoleAsString:
		resp["role"] = "[" + strings.Join(rolesOf(found), ", ") + "]"
	default:
		resp["role"] = rolesOf(found)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) refreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": "malformed request"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	username, ok := b.refresh[req.RefreshToken]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"message": "Invalid refresh token"})
		return
	}
	delete(b.refresh, req.RefreshToken)
	accessToken, refreshToken := b.issueLocked(b.users[username])
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"expiresIn":    strconv.Itoa(int(b.Issuer.TTL.Seconds())),
		"tokenType":    "Bearer",
	})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username       string `json:"username"`
		FirstName      string `json:"firstName"`
		LastName       string `json:"lastName"`
		Email          string `json:"email"`
		PhoneNumber    string `json:"phoneNumber"`
		Password       string `json:"password"`
		RepeatPassword string `json:"repeatPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": "malformed request"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []string
	if len(req.Username) < 3 {
		errs = append(errs, "Username must be between 3 and 50 characters")
	}
	if _, taken := b.users[req.Username]; taken {
		errs = append(errs, "Username already exists")
	}
	if req.FirstName == "" {
		errs = append(errs, "First Name is mandatory")
	}
	if req.Email == "" {
		errs = append(errs, "Email is mandatory")
	}
	if req.Password != req.RepeatPassword {
		errs = append(errs, "Passwords do not match")
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"status":    http.StatusBadRequest,
			"errors":    errs,
			"timestamp": NowTimeFunc(),
		})
		return
	}

	b.nextID++
	b.users[req.Username] = &member{
		MemberID:    int64(b.nextID),
		Username:    req.Username,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		UserRole:    "user",
		password:    req.Password,
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "User registered successfully"})
}

func (b *Backend) checkUsername(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, taken := b.users[r.URL.Query().Get("username")]
	writeJSON(w, http.StatusOK, map[string]bool{"available": !taken})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, m *member)

// requireAuth validates the bearer token. Callers must not hold b.mu.
func (b *Backend) requireAuth(next authedHandler) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"message": "Missing bearer token"})
			return
		}
		b.mu.Lock()
		username, ok := b.access[parts[1]]
		m := b.users[username]
		b.mu.Unlock()
		if !ok || m == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"message": "Invalid token"})
			return
		}
		next(w, r, m)
	}
}

func (b *Backend) requireAdmin(next authedHandler) func(http.ResponseWriter, *http.Request) {
	return b.requireAuth(func(w http.ResponseWriter, r *http.Request, m *member) {
		if m.UserRole != "admin" {
			writeJSON(w, http.StatusForbidden, map[string]interface{}{"message": "Access denied"})
			return
		}
		next(w, r, m)
	})
}

func (b *Backend) getProfile(w http.ResponseWriter, _ *http.Request, m *member) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, m)
}

func (b *Backend) updateProfile(w http.ResponseWriter, r *http.Request, m *member) {
	var req struct {
		FirstName   *string `json:"firstName"`
		LastName    *string `json:"lastName"`
		Email       *string `json:"email"`
		PhoneNumber *string `json:"phoneNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": "malformed request"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if req.FirstName != nil {
		m.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		m.LastName = *req.LastName
	}
	if req.Email != nil {
		m.Email = *req.Email
	}
	if req.PhoneNumber != nil {
		m.PhoneNumber = *req.PhoneNumber
	}
	writeJSON(w, http.StatusOK, m)
}

func pageParams(r *http.Request, defaultSize int) (int, int) {
	pageNum, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || pageNum < 0 {
		pageNum = 0
	}
	size, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil || size <= 0 {
		size = defaultSize
	}
	return pageNum, size
}

func paginate[T any](items []T, pageNum, size int) page {
	total := len(items)
	start := pageNum * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	totalPages := (total + size - 1) / size
	return page{
		Content:       items[start:end],
		CurrentPage:   pageNum,
		TotalPages:    totalPages,
		TotalElements: total,
		PageSize:      size,
		IsLast:        pageNum >= totalPages-1,
	}
}

func (b *Backend) listPosts(w http.ResponseWriter, r *http.Request, _ *member) {
	pageNum, size := pageParams(r, 10)
	field, order, _ := strings.Cut(r.URL.Query().Get("sort"), ",")

	b.mu.Lock()
	defer b.mu.Unlock()
	posts := append([]*post(nil), b.posts...)
	sort.SliceStable(posts, func(i, j int) bool {
		less := posts[i].CreatedAt.Before(posts[j].CreatedAt)
		if field == "title" {
			less = posts[i].Title < posts[j].Title
		}
		if strings.EqualFold(order, "desc") {
			return !less
		}
		return less
	})
	writeJSON(w, http.StatusOK, paginate(posts, pageNum, size))
}

func (b *Backend) createPost(w http.ResponseWriter, r *http.Request, m *member) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": 400, "errors": []string{"Title cannot be empty"}})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	p := &post{
		ID:        "post-" + strconv.Itoa(b.nextID),
		Title:     req.Title,
		Content:   req.Content,
		Member:    m,
		CreatedAt: NowTimeFunc().Add(time.Duration(b.nextID) * time.Millisecond),
		Comments:  []*comment{},
	}
	b.posts = append(b.posts, p)
	writeJSON(w, http.StatusCreated, p)
}

func (b *Backend) deletePost(w http.ResponseWriter, r *http.Request, m *member) {
	id := r.PathValue("postId")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range b.posts {
		if p.ID != id {
			continue
		}
		if p.Member.Username != m.Username && m.UserRole != "admin" {
			writeJSON(w, http.StatusForbidden, map[string]interface{}{"message": "Not your post"})
			return
		}
		b.posts = append(b.posts[:i], b.posts[i+1:]...)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]interface{}{"message": "Post not found"})
}

func (b *Backend) addComment(w http.ResponseWriter, r *http.Request, m *member) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": 400, "errors": []string{"Comment content cannot be empty"}})
		return
	}
	id := r.PathValue("postId")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.posts {
		if p.ID == id {
			b.nextID++
			c := &comment{
				ID:        "comment-" + strconv.Itoa(b.nextID),
				Content:   req.Content,
				Member:    m,
				PostID:    id,
				CreatedAt: NowTimeFunc(),
			}
			p.Comments = append(p.Comments, c)
			writeJSON(w, http.StatusCreated, c)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]interface{}{"message": "Post not found"})
}

func (b *Backend) deleteComment(w http.ResponseWriter, r *http.Request, _ *member) {
	id := r.PathValue("commentId")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.posts {
		for i, c := range p.Comments {
			if c.ID == id {
				p.Comments = append(p.Comments[:i], p.Comments[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]interface{}{"message": "Comment not found"})
}

func (b *Backend) listUsers(w http.ResponseWriter, r *http.Request, _ *member) {
	pageNum, size := pageParams(r, 10)
	b.mu.Lock()
	defer b.mu.Unlock()
	members := make([]*member, 0, len(b.users))
	for _, m := range b.users {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].MemberID < members[j].MemberID })
	writeJSON(w, http.StatusOK, paginate(members, pageNum, size))
}

func (b *Backend) analytics(w http.ResponseWriter, _ *http.Request, _ *member) {
	b.mu.Lock()
	defer b.mu.Unlock()

	type postStat struct {
		PostTitle     string `json:"postTitle"`
		PostID        string `json:"postId"`
		TotalComments int    `json:"totalComments"`
	}
	type memberStat struct {
		Username   string     `json:"username"`
		TotalPosts int        `json:"totalPosts"`
		Posts      []postStat `json:"posts"`
	}

	totalComments := 0
	byUser := map[string]*memberStat{}
	var top *post
	for _, p := range b.posts {
		totalComments += len(p.Comments)
		ms, ok := byUser[p.Member.Username]
		if !ok {
			ms = &memberStat{Username: p.Member.Username}
			byUser[p.Member.Username] = ms
		}
		ms.TotalPosts++
		ms.Posts = append(ms.Posts, postStat{PostTitle: p.Title, PostID: p.ID, TotalComments: len(p.Comments)})
		if top == nil || len(p.Comments) > len(top.Comments) {
			top = p
		}
	}
	members := make([]*memberStat, 0, len(byUser))
	for _, ms := range byUser {
		members = append(members, ms)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Username < members[j].Username })

	resp := map[string]interface{}{
		"totalUsers":    len(b.users),
		"totalPosts":    len(b.posts),
		"totalComments": totalComments,
		"members":       members,
	}
	if top != nil {
		resp["topPost"] = map[string]interface{}{
			"postTitle":     top.Title,
			"postId":        top.ID,
			"member":        top.Member.FirstName + " " + top.Member.LastName,
			"totalComments": len(top.Comments),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) elevate(w http.ResponseWriter, r *http.Request, _ *member) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.users[r.PathValue("username")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"message": "Member not found"})
		return
	}
	m.UserRole = "admin"
	writeJSON(w, http.StatusOK, m)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
