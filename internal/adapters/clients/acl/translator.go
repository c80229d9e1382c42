package acl

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/domain"
)

// BaseAdapter holds what every remote adapter needs: the client and the
// service name used in domain errors.
type BaseAdapter struct {
	client      *clients.Client
	serviceName string
}

// NewBaseAdapter creates a BaseAdapter.
func NewBaseAdapter(client *clients.Client, serviceName string) BaseAdapter {
	return BaseAdapter{
		client:      client,
		serviceName: serviceName,
	}
}

// ServiceName returns the name of the remote service.
func (a *BaseAdapter) ServiceName() string {
	return a.serviceName
}

// CircuitState reports the client's circuit breaker state.
func (a *BaseAdapter) CircuitState() clients.State {
	return a.client.CircuitState()
}

// Get performs a GET and returns the body on 2xx. The caller closes it.
func (a *BaseAdapter) Get(ctx context.Context, path, operation string) (io.ReadCloser, error) {
	resp, err := a.client.Get(ctx, path)

	return a.body(resp, err, operation)
}

// PostJSON performs a POST and returns the body on 2xx. The caller closes it.
func (a *BaseAdapter) PostJSON(ctx context.Context, path string, payload []byte, operation string) (io.ReadCloser, error) {
	resp, err := a.client.PostJSON(ctx, path, payload)

	return a.body(resp, err, operation)
}

func (a *BaseAdapter) body(resp *http.Response, err error, operation string) (io.ReadCloser, error) {
	if err != nil {
		return nil, MapHTTPError(nil, err, a.serviceName, operation)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		defer func() { _ = resp.Body.Close() }()

		return nil, MapHTTPError(resp, nil, a.serviceName, operation)
	}

	return resp.Body, nil
}

// DecodeResponse decodes a JSON body into T and closes it. Malformed JSON
// becomes a domain.ParseError.
func DecodeResponse[T any](body io.ReadCloser) (T, error) {
	var result T

	if body == nil {
		return result, domain.NewParseError(sourceRemote, "empty response body", nil)
	}
	defer func() { _ = body.Close() }()

	if err := json.NewDecoder(body).Decode(&result); err != nil {
		return result, domain.NewParseError(sourceRemote, "decoding response", err)
	}

	return result, nil
}

// Translator converts one external item. It returns ok=false to drop the item.
type Translator[External any, Domain any] func(ext External) (Domain, bool)

// TranslateSlice applies translate to every item, keeping order and
// dropping rejected items. The result is never nil.
func TranslateSlice[E any, D any](items []E, translate Translator[E, D]) []D {
	result := make([]D, 0, len(items))

	for _, item := range items {
		if translated, ok := translate(item); ok {
			result = append(result, translated)
		}
	}

	return result
}
