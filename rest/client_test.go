package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/amdevit/restling/pkg/serialization"
)

type widget struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type legacyWidget struct {
	Name string `jsoniter:"widget_name"`
}

type recordingObserver struct {
	mu      sync.Mutex
	results []*Result
}

func (o *recordingObserver) Observe(_ *Request, res *Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, res)
}

type transportFunc func(*http.Request) (*http.Response, error)

func (f transportFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

type closingTransport struct {
	closed bool
}

func (c *closingTransport) Do(*http.Request) (*http.Response, error) { return nil, nil }
func (c *closingTransport) CloseIdleConnections()                   { c.closed = true }

func TestClient_GetTyped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/ip", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, "yes", r.Header.Get("X-Test"))

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(`{"origin":"1.2.3.4"}`))
	}))
	defer server.Close()

	client := NewClient()
	defer client.Close()

	res, err := Get[origin](context.Background(), client, server.URL+"/ip",
		WithAuthentication(AuthenticationHeader{Scheme: "Bearer", Parameter: "token"}),
		WithHeader("X-Test", "yes"),
	)

	require.NoError(t, err)
	assert.True(t, res.IsSuccessful())
	assert.Equal(t, "1.2.3.4", res.Data().Origin)
	assert.True(t, res.Elapsed() > 0)
	assert.Nil(t, res.Timing())
}

func TestClient_PostEncodesPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "application/json; charset=utf-8", r.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"name":"bolt","count":2}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write(body)
	}))
	defer server.Close()

	client := NewClient()

	res, err := Post[widget](context.Background(), client, server.URL, widget{Name: "bolt", Count: 2})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.StatusCode())
	assert.Equal(t, widget{Name: "bolt", Count: 2}, res.Data())

	untyped, err := client.Post(context.Background(), server.URL, widget{Name: "bolt", Count: 2})
	require.NoError(t, err)
	assert.True(t, untyped.IsSuccessful())
}

func TestClient_SerializerSelection(t *testing.T) {
	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, string(body))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(WithSerializer(serialization.JSONIter))
	ctx := context.Background()

	_, err := client.Put(ctx, server.URL, widget{Name: "a", Count: 1})
	require.NoError(t, err)
	_, err = client.Put(ctx, server.URL, widget{Name: "a", Count: 1}, WithSerializerOverride(serialization.Automatic))
	require.NoError(t, err)
	_, err = NewClient().Put(ctx, server.URL, legacyWidget{Name: "b"})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.JSONEq(t, `{"Name":"a","Count":1}`, got[0])
	assert.JSONEq(t, `{"name":"a","count":1}`, got[1])
	assert.JSONEq(t, `{"widget_name":"b"}`, got[2])
}

func TestClient_PayloadMediaType(t *testing.T) {
	var contentTypes []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentTypes = append(contentTypes, r.Header.Get("Content-Type"))
	}))
	defer server.Close()

	client := NewClient(WithPayloadMediaType("application/vnd.api+json"))
	ctx := context.Background()

	_, err := client.Post(ctx, server.URL, widget{})
	require.NoError(t, err)
	_, err = client.Post(ctx, server.URL, widget{}, WithContentType("application/merge-patch+json"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"application/vnd.api+json; charset=utf-8",
		"application/merge-patch+json; charset=utf-8",
	}, contentTypes)
}

func TestClient_FormAndRawBodies(t *testing.T) {
	type seen struct {
		contentType, accept, body string
	}
	var got []seen
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, seen{r.Header.Get("Content-Type"), r.Header.Get("Accept"), string(body)})
	}))
	defer server.Close()

	client := NewClient()
	ctx := context.Background()

	form, err := NewRequest(MethodPost, server.URL, WithForm(url.Values{"grant_type": {"client_credentials"}}))
	require.NoError(t, err)
	_, err = client.Execute(ctx, form)
	require.NoError(t, err)

	raw, err := NewRequest(MethodPut, server.URL, WithRawBody([]byte("<a/>"), "application/xml"), WithAccept("application/xml"))
	require.NoError(t, err)
	_, err = client.Execute(ctx, raw)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, seen{"application/x-www-form-urlencoded", "", "grant_type=client_credentials"}, got[0])
	assert.Equal(t, seen{"application/xml", "application/xml", "<a/>"}, got[1])
}

func TestClient_ConflictingBody(t *testing.T) {
	client := NewClient(WithTransport(transportFunc(func(*http.Request) (*http.Response, error) {
		t.Fatal("request must not be sent")
		return nil, nil
	})))

	req, err := NewRequest(MethodPost, "https://example.com",
		WithPayload(widget{}),
		WithRawBody([]byte("x"), "text/plain"),
	)
	require.NoError(t, err)

	_, err = Execute[widget](context.Background(), client, req)
	assert.ErrorIs(t, err, ErrConflictingBody)
}

func TestClient_ExecuteUntypedPayload(t *testing.T) {
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
	}))
	defer server.Close()

	req, err := NewRequest(MethodPost, server.URL, WithPayload(widget{Name: "x"}))
	require.NoError(t, err)

	core, logs := observer.New(zap.WarnLevel)
	lenient := NewClient(WithLogger(zap.New(core)))
	res, err := lenient.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.IsSuccessful())
	assert.Equal(t, []string{""}, bodies)
	assert.Equal(t, 1, logs.FilterMessage("dropping payload on untyped execution").Len())

	strict := NewClient(WithStrictPayloads(true))
	_, err = strict.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrUntypedPayload)
	assert.Len(t, bodies, 1)

	typed, err := Execute[string](context.Background(), strict, req)
	require.NoError(t, err)
	assert.True(t, typed.IsSuccessful())
	require.Len(t, bodies, 2)
	assert.JSONEq(t, `{"name":"x","count":0}`, bodies[1])
}

func TestClient_CustomMethod(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PURGE", r.Method)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient()

	req, err := NewRequest(MethodCustom, server.URL, WithCustomMethod("PURGE"))
	require.NoError(t, err)
	res, err := client.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, res.StatusCode())

	empty, err := NewRequest(MethodCustom, server.URL)
	require.NoError(t, err)
	_, err = client.Execute(context.Background(), empty)
	assert.ErrorIs(t, err, ErrCustomMethodRequired)
}

func TestClient_TransportFailureIsCaptured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	uri := server.URL + "/gone"
	server.Close()

	core, logs := observer.New(zap.ErrorLevel)
	obs := &recordingObserver{}
	client := NewClient(WithLogger(zap.New(core)), WithObserver(obs))

	res, err := Get[origin](context.Background(), client, uri)

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.IsSuccessful())
	assert.False(t, res.HasStatus())
	assert.False(t, res.HasData())

	var terr *TransportError
	require.True(t, errors.As(res.Err(), &terr))
	assert.Equal(t, http.MethodGet, terr.Method)
	assert.Equal(t, uri, terr.URI)

	entries := logs.FilterMessage("request failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, uri, entries[0].ContextMap()["uri"])
	assert.Len(t, obs.results, 1)
}

func TestClient_CancellationIsCaptured(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := NewClient().Get(ctx, server.URL)

	require.NoError(t, err)
	assert.ErrorIs(t, res.Err(), context.DeadlineExceeded)
	assert.False(t, res.IsSuccessful())
}

func TestClient_NilResponse(t *testing.T) {
	client := NewClient(WithTransport(transportFunc(func(*http.Request) (*http.Response, error) {
		return nil, nil
	})))

	res, err := client.Get(context.Background(), "https://example.com")

	require.NoError(t, err)
	assert.ErrorIs(t, res.Err(), ErrNoResponse)
}

func TestClient_DecodeEscalationAndSwallow(t *testing.T) {
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(`{"origin":`))
	}))
	defer server.Close()

	client := NewClient()

	res, err := Get[origin](context.Background(), client, server.URL)
	assert.Nil(t, res)
	var derr *DecodeError
	require.True(t, errors.As(err, &derr))

	status = http.StatusInternalServerError
	res, err = Get[origin](context.Background(), client, server.URL)
	require.NoError(t, err)
	assert.False(t, res.IsSuccessful())
	assert.False(t, res.HasData())
	assert.NoError(t, res.Err())
}

func TestClient_UnsafeXMLOption(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(xxeDocument))
	}))
	defer server.Close()

	_, err := Get[fooDoc](context.Background(), NewClient(), server.URL)
	assert.ErrorIs(t, err, ErrUnsafeXML)

	res, err := Get[fooDoc](context.Background(), NewClient(WithUnsafeXML(true)), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "&xxe;", res.Data().Value)
}

func TestClient_TimingAndRequestID(t *testing.T) {
	var sentID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sentID = r.Header.Get("X-Correlation")
	}))
	defer server.Close()

	client := NewClient(WithTiming(true), WithRequestID("X-Correlation"))

	res, err := client.Delete(context.Background(), server.URL)
	require.NoError(t, err)
	require.NotNil(t, res.Timing())
	assert.Equal(t, res.Elapsed(), res.Timing().Total)
	assert.False(t, res.Timing().StartTime.IsZero())
	assert.NotEmpty(t, sentID)
	assert.Equal(t, sentID, res.RequestID())

	res, err = client.Get(context.Background(), server.URL, WithHeader("X-Correlation", "fixed"))
	require.NoError(t, err)
	assert.Equal(t, "fixed", sentID)
	assert.Equal(t, "fixed", res.RequestID())
}

func TestClient_InvalidURIBeforeSend(t *testing.T) {
	client := NewClient(WithTransport(transportFunc(func(*http.Request) (*http.Response, error) {
		t.Fatal("request must not be sent")
		return nil, nil
	})))

	_, err := client.Get(context.Background(), "relative/path")
	assert.ErrorIs(t, err, ErrInvalidURI)

	_, err = client.Execute(context.Background(), &Request{})
	assert.ErrorIs(t, err, ErrInvalidURI)

	_, err = client.Execute(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilRequest)
}

func TestClient_Close(t *testing.T) {
	shared := &closingTransport{}
	require.NoError(t, NewClient(WithTransport(shared)).Close())
	assert.False(t, shared.closed)

	owned := &closingTransport{}
	require.NoError(t, NewClient(WithTransport(owned), WithOwnedTransport()).Close())
	assert.True(t, owned.closed)

	require.NoError(t, NewClient().Close())
}

func TestClient_ConcurrentUse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"n","count":` + r.URL.Query().Get("i") + `}`))
	}))
	defer server.Close()

	client := NewClient()
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := Get[widget](context.Background(), client, server.URL+"?i="+string(rune('0'+i)))
			if assert.NoError(t, err) {
				assert.Equal(t, i, res.Data().Count)
			}
		}(i)
	}
	wg.Wait()
}
