package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"nestlist/internal/tree"
)

// API is the subset of the server the coordinator drives.
type API interface {
	CreateNode(ctx context.Context, parent *int64, kind tree.Kind, name string) (tree.Node, error)
	RenameNode(ctx context.Context, id int64, name string) (tree.Node, error)
	SetChecked(ctx context.Context, id int64, checked bool) (tree.Node, error)
	DeleteNode(ctx context.Context, id int64) error
	MoveNode(ctx context.Context, id int64, parent *int64) (tree.Node, error)
	PlaceNode(ctx context.Context, id int64, parent *int64, index int) (tree.Node, error)
	Reorder(ctx context.Context, container int64, kind tree.Kind, ids []int64) error
}

// Error is a rejection reported by the server.
type Error struct {
	Status  int    `json:"-"`
	Reason  string `json:"reason"`
	Message string `json:"error"`
}

func (e *Error) Error() string { return e.Message }

var reasons = map[string]error{
	"validation_error": tree.ErrValidation,
	"invalid_order":    tree.ErrInvalidOrder,
	"invalid_target":   tree.ErrInvalidTarget,
	"cyclic_move":      tree.ErrCyclicMove,
	"not_found":        tree.ErrNotFound,
	"forbidden":        tree.ErrForbidden,
}

// Is matches the tree sentinel named by the reason code.
func (e *Error) Is(target error) bool {
	s, ok := reasons[e.Reason]
	return ok && s == target
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

type ListSummary struct {
	tree.Node
	ItemCount      int64  `json:"itemCount"`
	CompletedCount int64  `json:"completedCount"`
	Permission     string `json:"permission,omitempty"`
}

type ListDetail struct {
	tree.Node
	Permission string        `json:"permission"`
	Items      []tree.Node   `json:"items"`
	Children   []ListSummary `json:"children"`
}

type Member struct {
	UserID     int64  `json:"userId"`
	Username   string `json:"username"`
	Permission string `json:"permission"`
	Owner      bool   `json:"owner"`
}

type Event struct {
	Type    string          `json:"type"`
	RootID  int64           `json:"rootId"`
	NodeID  *int64          `json:"nodeId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// HTTP talks to the server's JSON API.
type HTTP struct {
	base  string
	token string
	hc    *http.Client
}

func NewHTTP(base string, hc *http.Client) *HTTP {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTP{base: strings.TrimRight(base, "/"), hc: hc}
}

func (h *HTTP) SetToken(token string) { h.token = token }
func (h *HTTP) Token() string         { return h.token }

func (h *HTTP) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	resp, err := h.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

type authResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

func (h *HTTP) Register(ctx context.Context, username, email, password string) (User, error) {
	var res authResult
	err := h.do(ctx, "POST", "/api/auth/register", map[string]string{"username": username, "email": email, "password": password}, &res)
	if err != nil {
		return User{}, err
	}
	h.token = res.Token
	return res.User, nil
}

// Login authenticates and keeps the session token for later calls.
func (h *HTTP) Login(ctx context.Context, username, password string) (User, error) {
	var res authResult
	err := h.do(ctx, "POST", "/api/auth/login", map[string]string{"username": username, "password": password}, &res)
	if err != nil {
		return User{}, err
	}
	h.token = res.Token
	return res.User, nil
}

func (h *HTTP) Lists(ctx context.Context) ([]ListSummary, error) {
	var out []ListSummary
	err := h.do(ctx, "GET", "/api/lists", nil, &out)
	return out, err
}

func (h *HTTP) List(ctx context.Context, listID int64) (ListDetail, error) {
	var out ListDetail
	err := h.do(ctx, "GET", "/api/lists/"+itoa(listID), nil, &out)
	return out, err
}

func (h *HTTP) Tree(ctx context.Context, listID int64) (*tree.Branch, error) {
	var out tree.Branch
	if err := h.do(ctx, "GET", "/api/lists/"+itoa(listID)+"/tree", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTP) Members(ctx context.Context, listID int64) ([]Member, error) {
	var out []Member
	err := h.do(ctx, "GET", "/api/lists/"+itoa(listID)+"/users", nil, &out)
	return out, err
}

func (h *HTTP) Share(ctx context.Context, listID int64, username, permission string) (Member, error) {
	var out Member
	err := h.do(ctx, "POST", "/api/lists/"+itoa(listID)+"/share",
		map[string]string{"username": username, "permission": permission}, &out)
	return out, err
}

func (h *HTTP) Unshare(ctx context.Context, listID, userID int64) error {
	return h.do(ctx, "DELETE", "/api/lists/"+itoa(listID)+"/share/"+itoa(userID), nil, nil)
}

func (h *HTTP) CreateNode(ctx context.Context, parent *int64, kind tree.Kind, name string) (tree.Node, error) {
	var out tree.Node
	in := map[string]any{"parentId": parent, "kind": kind, "name": name}
	err := h.do(ctx, "POST", "/api/nodes", in, &out)
	return out, err
}

func (h *HTTP) RenameNode(ctx context.Context, nodeID int64, name string) (tree.Node, error) {
	var out tree.Node
	err := h.do(ctx, "PATCH", "/api/nodes/"+itoa(nodeID), map[string]any{"name": name}, &out)
	return out, err
}

func (h *HTTP) SetChecked(ctx context.Context, nodeID int64, checked bool) (tree.Node, error) {
	var out tree.Node
	err := h.do(ctx, "PATCH", "/api/nodes/"+itoa(nodeID), map[string]any{"isChecked": checked}, &out)
	return out, err
}

func (h *HTTP) DeleteNode(ctx context.Context, nodeID int64) error {
	return h.do(ctx, "DELETE", "/api/nodes/"+itoa(nodeID), nil, nil)
}

func (h *HTTP) MoveNode(ctx context.Context, nodeID int64, parent *int64) (tree.Node, error) {
	var out tree.Node
	err := h.do(ctx, "PUT", "/api/nodes/"+itoa(nodeID)+"/move", map[string]any{"parentId": parent}, &out)
	return out, err
}

func (h *HTTP) PlaceNode(ctx context.Context, nodeID int64, parent *int64, index int) (tree.Node, error) {
	var out tree.Node
	err := h.do(ctx, "PUT", "/api/nodes/"+itoa(nodeID)+"/move", map[string]any{"parentId": parent, "index": index}, &out)
	return out, err
}

func (h *HTTP) Reorder(ctx context.Context, container int64, kind tree.Kind, ids []int64) error {
	seg := "items"
	if kind == tree.KindList {
		seg = "children"
	}
	if ids == nil {
		ids = []int64{}
	}
	return h.do(ctx, "PUT", "/api/lists/"+itoa(container)+"/"+seg+"/reorder", map[string]any{"ids": ids}, nil)
}

// Watch streams events for the root above listID until ctx ends or the
// connection drops.
func (h *HTTP) Watch(ctx context.Context, listID int64, fn func(Event)) error {
	u, err := url.Parse(h.base + "/api/lists/" + itoa(listID) + "/ws")
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	header := http.Header{}
	if h.token != "" {
		header.Set("Authorization", "Bearer "+h.token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("watch: %s: %w", resp.Status, err)
		}
		return err
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			return fmt.Errorf("watch: decode event: %w", err)
		}
		fn(ev)
	}
}

// IsTransport reports whether err came from the network rather than a
// server rejection.
func IsTransport(err error) bool {
	var apiErr *Error
	return err != nil && !errors.As(err, &apiErr)
}
