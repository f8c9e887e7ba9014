package docpage

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/datquest/docquery/internal/backend"
	"github.com/datquest/docquery/internal/page"
	"github.com/datquest/docquery/internal/session"
	"github.com/datquest/docquery/internal/testutil"
	"github.com/datquest/docquery/internal/ui/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*Registry, *testutil.FakeBackend, *notifier.Notifier) {
	t.Helper()
	fake := testutil.NewFakeBackend(t)
	notify := notifier.New()
	reg := NewRegistry(backend.New(fake.URL), session.NewMemoryStore(0), notify, testutil.NewTestLogger(t), time.Hour)
	return reg, fake, notify
}

func TestRegistry_Controller(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	a := reg.Controller("a")
	assert.Same(t, a, reg.Controller("a"))
	assert.NotSame(t, a, reg.Controller("b"))
	assert.Equal(t, "a", a.SessionID())
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_ObserverPublishesToSession(t *testing.T) {
	reg, fake, notify := newTestRegistry(t)
	fake.AddModel("Acme", "X1", "x1.pdf")

	mine := notify.Subscribe("a")
	other := notify.Subscribe("b")
	defer notify.Unsubscribe("a", mine)
	defer notify.Unsubscribe("b", other)

	reg.Controller("a").RefreshCompanies(context.Background())

	select {
	case <-mine:
	case <-time.After(time.Second):
		t.Fatal("no update for the changed session")
	}
	select {
	case <-other:
		t.Fatal("other session was notified")
	default:
	}
}

func TestRegistry_RefreshCompaniesExcept(t *testing.T) {
	reg, fake, _ := newTestRegistry(t)
	a, b := reg.Controller("a"), reg.Controller("b")
	fake.AddModel("Acme", "X1", "x1.pdf")

	reg.RefreshCompaniesExcept(context.Background(), "a")

	assert.Empty(t, a.Snapshot().Companies.Choices())
	require.Len(t, b.Snapshot().Companies.Choices(), 1)
	assert.Equal(t, "Acme", b.Snapshot().Companies.Choices()[0].Value)
}

func TestRegistry_RefreshOthersOutlivesRequest(t *testing.T) {
	reg, fake, _ := newTestRegistry(t)
	a, b, c := reg.Controller("a"), reg.Controller("b"), reg.Controller("c")
	fake.AddModel("Acme", "X1", "x1.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reg.RefreshOthers(ctx, "a")
	reg.Wait()

	assert.Empty(t, a.Snapshot().Companies.Choices())
	for _, ctrl := range []*page.Controller{b, c} {
		_, ok := ctrl.Snapshot().Companies.Find("Acme")
		assert.True(t, ok, "%s refreshed despite the cancelled request", ctrl.SessionID())
	}
	assert.Equal(t, 2, fake.Hits("/companies/"), "one fetch per other tab")
}

func TestSignalsFor(t *testing.T) {
	st := page.State{
		QueryInput:   "why?",
		CompanyInput: "Ac",
		Companies: page.Dropdown{Options: []page.Option{
			{Label: page.CompanyPlaceholder},
			{Value: "Acme", Label: "Acme", Selected: true},
		}},
		Models: page.Dropdown{Options: []page.Option{
			{Label: page.ModelPlaceholder},
			{Value: "X1", Label: "X1 (x1.pdf)", RecordID: "r1", Selected: true},
		}},
	}

	assert.Equal(t, Signals{Company: "Acme", Model: "r1", Question: "why?", CompanyInput: "Ac"}, signalsFor(st))
	assert.Equal(t, Signals{}, signalsFor(page.State{}))
}

func TestOptionKey(t *testing.T) {
	assert.Equal(t, "r1", optionKey(page.Option{Value: "X1", RecordID: "r1"}))
	assert.Equal(t, "X1", optionKey(page.Option{Value: "X1"}))
}

func TestPage_SeedsTabID(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Page("Document Query", "7d444840-9dc0-11d1-b245-5ffdce74fad2", View{State: page.InitialState()}).Render(context.Background(), &buf))
	html := buf.String()

	assert.Contains(t, html, `data-signals:tab="sessionStorage.getItem('docquery.tab') || '7d444840-9dc0-11d1-b245-5ffdce74fad2'"`)
	assert.Contains(t, html, `sessionStorage.setItem('docquery.tab', $tab); @get('/page/sse')`)
	assert.Contains(t, html, `<input type="hidden" name="tab" value="" data-attr:value="$tab">`)
	assert.Contains(t, html, `<p class="session"></p>`, "no session before the stream connects")
}

func TestApp_EscapesMessages(t *testing.T) {
	v := View{
		SessionID: "s1",
		State: page.State{
			Output:        page.Message{Text: "<b>12V</b>\nmax", Tone: page.ToneNeutral},
			UploadEnabled: true,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, App(v).Render(context.Background(), &buf))
	html := buf.String()

	assert.Contains(t, html, "&lt;b&gt;12V&lt;/b&gt;<br>max")
	assert.NotContains(t, html, "<b>12V</b>")
	assert.Contains(t, html, "tone-neutral")
	assert.Contains(t, html, `<button type="submit" disabled>Ask</button>`)
	assert.Contains(t, html, `<button type="submit">Upload</button>`)
}
