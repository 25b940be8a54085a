package supra

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"SupraView/internal/domain/models"
	xhttp "SupraView/pkg/http"
)

// RPCOption configures RPCClient.
type RPCOption func(*RPCClient)

// RPCClient issues read-only view-function calls against a Supra RPC node.
// It implements repository.ViewCaller.
type RPCClient struct {
	http *xhttp.Client
	url  string
}

// NewRPCClient creates a view-call client for the given RPC base URL.
func NewRPCClient(url string, opts ...RPCOption) *RPCClient {
	c := &RPCClient{
		http: xhttp.NewClient(xhttp.WithTimeout(5 * time.Second)),
		url:  strings.TrimRight(url, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithRPCTimeout sets the per-call timeout.
func WithRPCTimeout(timeout time.Duration) RPCOption {
	return func(c *RPCClient) {
		c.http = xhttp.NewClient(xhttp.WithTimeout(timeout))
	}
}

type viewRequest struct {
	Function      string        `json:"function"`
	TypeArguments []string      `json:"type_arguments"`
	Arguments     []interface{} `json:"arguments"`
}

type viewResponse struct {
	Result []json.RawMessage `json:"result"`
}

// CallView invokes function with the given type arguments and arguments and
// returns the positional result tuple undecoded. A response without a result
// field is an empty-result error; decoding the tuple is the caller's concern.
func (c *RPCClient) CallView(ctx context.Context, function string, typeArgs []string, args []interface{}) ([]json.RawMessage, error) {
	if typeArgs == nil {
		typeArgs = []string{}
	}
	if args == nil {
		args = []interface{}{}
	}

	var resp viewResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.url + "/rpc/v1/view",
		Body: viewRequest{
			Function:      function,
			TypeArguments: typeArgs,
			Arguments:     args,
		},
	}, &resp)
	if err != nil {
		return nil, models.TransportErrorf(function, err)
	}
	if resp.Result == nil {
		return nil, models.EmptyResultError(function)
	}
	return resp.Result, nil
}
