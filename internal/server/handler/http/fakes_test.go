package http

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/TalentKeeper/internal/apperr"
	"github.com/atinyakov/TalentKeeper/internal/models"
	"github.com/atinyakov/TalentKeeper/internal/patreon"
	"github.com/atinyakov/TalentKeeper/internal/service"
)

// fakeTalents implements TalentService for testing.
type fakeTalents struct {
	lastQuery service.ListQuery
	listRes   *service.ListResult
	listErr   error

	path    string
	pathErr error
	cached  map[string]string

	uploadName string
	uploadBody string
	uploadErr  error

	lastInput service.TalentInput
	saveID    string
	err       error

	deleted     string
	deletedName string
	favorite    bool
	favPath     string
	talent      *models.Talent
	selection   *service.Selection
}

func (f *fakeTalents) List(_ context.Context, q service.ListQuery) (*service.ListResult, error) {
	f.lastQuery = q
	return f.listRes, f.listErr
}

func (f *fakeTalents) ListRemote(_ context.Context, q service.ListQuery) (*service.ListResult, error) {
	f.lastQuery = q
	return f.listRes, f.listErr
}

func (f *fakeTalents) ImagePath(context.Context, string, string, string) (string, error) {
	return f.path, f.pathErr
}

func (f *fakeTalents) ThumbnailPath(context.Context, string, string, string) (string, error) {
	return f.path, f.pathErr
}

func (f *fakeTalents) CachedImagePath(id string) (string, bool) {
	p, ok := f.cached[id]
	return p, ok
}

func (f *fakeTalents) Upload(_ context.Context, filename string, r io.Reader) (*service.UploadResult, error) {
	b, _ := io.ReadAll(r)
	f.uploadName, f.uploadBody = filename, string(b)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &service.UploadResult{Status: "success", TempFilename: "temp_x.jpg", OriginalFilename: filename}, nil
}

func (f *fakeTalents) Save(_ context.Context, in service.TalentInput) (string, error) {
	f.lastInput = in
	return f.saveID, f.err
}

func (f *fakeTalents) Update(_ context.Context, in service.TalentInput) error {
	f.lastInput = in
	return f.err
}

func (f *fakeTalents) Delete(_ context.Context, id string) (string, error) {
	f.deleted = id
	return f.deletedName, f.err
}

func (f *fakeTalents) ToggleFavorite(_ context.Context, _ string, catalogPath string) (bool, error) {
	f.favPath = catalogPath
	return f.favorite, f.err
}

func (f *fakeTalents) Get(context.Context, string) (*models.Talent, error) {
	return f.talent, f.err
}

func (f *fakeTalents) Select(context.Context, string, string) (*service.Selection, error) {
	return f.selection, f.err
}

type fakeDevices struct{ id string }

func (f *fakeDevices) GetOrCreate(context.Context) (string, error) { return f.id, nil }

type fakeUIState struct {
	gallery, node string
	state         map[string]any
}

func (f *fakeUIState) Get(_ context.Context, galleryID, nodeID string) (map[string]any, error) {
	if galleryID == "" || nodeID == "" {
		return nil, apperr.InvalidArgument("node_id or gallery_id required")
	}
	return service.DefaultUIState(), nil
}

func (f *fakeUIState) Merge(_ context.Context, galleryID, nodeID string, state map[string]any) error {
	f.gallery, f.node, f.state = galleryID, nodeID, state
	return nil
}

type fakePatreon struct {
	device      string
	authURL     string
	state       string
	cookieState string
	code        string
	auth        *models.PatreonAuth
	status      patreon.Status
	membership  *models.Membership
	err         error
}

func (f *fakePatreon) AuthorizeURL(deviceID string) (string, string, error) {
	f.device = deviceID
	return f.authURL, "signed-state", f.err
}

func (f *fakePatreon) HandleCallback(_ context.Context, state, cookieState, code string) (*models.PatreonAuth, error) {
	f.state, f.cookieState, f.code = state, cookieState, code
	return f.auth, f.err
}

func (f *fakePatreon) Status(_ context.Context, deviceID string) (patreon.Status, error) {
	f.device = deviceID
	return f.status, f.err
}

func (f *fakePatreon) Logout(_ context.Context, deviceID string) error {
	f.device = deviceID
	return f.err
}

func (f *fakePatreon) CheckMembership(_ context.Context, deviceID string) (*models.Membership, error) {
	f.device = deviceID
	return f.membership, f.err
}

type testServer struct {
	router  http.Handler
	talents *fakeTalents
	ui      *fakeUIState
	patreon *fakePatreon
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{
		talents: &fakeTalents{},
		ui:      &fakeUIState{},
		patreon: &fakePatreon{authURL: "https://patreon.example/authorize?state=signed-state"},
	}
	devices := &fakeDevices{id: "local-dev"}
	log := zap.NewNop()
	s.router = NewRouter(Handlers{
		Talents: &TalentHandler{TalentService: s.talents, Log: log},
		Devices: &DeviceHandler{Devices: devices, UIState: s.ui, Log: log},
		Patreon: &PatreonHandler{PatreonService: s.patreon, CookiePath: "/morpheus/patreon", Log: log},
	}, devices, "/morpheus", log)
	require.NotNil(t, s.router)
	return s
}
