package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// SyncServiceName is the fully-qualified name of the SyncService.
const SyncServiceName = Package + ".SyncService"

// Procedure paths.
const (
	SyncServiceSyncProcedure   = "/" + SyncServiceName + "/Sync"
	SyncServiceStatusProcedure = "/" + SyncServiceName + "/Status"
)

type SyncRequest struct{}

type SyncResponse struct {
	Applied   int `json:"applied"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}

type SyncStatusRequest struct{}

type SyncStatusResponse struct {
	// Enabled is false when the server runs without a remote store.
	Enabled bool `json:"enabled"`
	Pending int  `json:"pending"`
}

// SyncServiceHandler is implemented by the server side of the SyncService.
type SyncServiceHandler interface {
	Sync(context.Context, *connect.Request[SyncRequest]) (*connect.Response[SyncResponse], error)
	Status(context.Context, *connect.Request[SyncStatusRequest]) (*connect.Response[SyncStatusResponse], error)
}

// NewSyncServiceHandler builds an HTTP handler for every SyncService procedure and
// returns the path prefix to mount it under.
func NewSyncServiceHandler(svc SyncServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return serviceHandler(SyncServiceName,
		unary(SyncServiceSyncProcedure, svc.Sync, opts),
		unary(SyncServiceStatusProcedure, svc.Status, opts),
	)
}

// SyncServiceClient calls a remote SyncService.
type SyncServiceClient struct {
	sync   *connect.Client[SyncRequest, SyncResponse]
	status *connect.Client[SyncStatusRequest, SyncStatusResponse]
}

// NewSyncServiceClient returns a client for the SyncService served at baseURL.
func NewSyncServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SyncServiceClient {
	opts = clientOptions(opts)
	return &SyncServiceClient{
		sync:   newClient[SyncRequest, SyncResponse](httpClient, baseURL, SyncServiceSyncProcedure, opts),
		status: newClient[SyncStatusRequest, SyncStatusResponse](httpClient, baseURL, SyncServiceStatusProcedure, opts),
	}
}

func (c *SyncServiceClient) Sync(ctx context.Context, req *connect.Request[SyncRequest]) (*connect.Response[SyncResponse], error) {
	return c.sync.CallUnary(ctx, req)
}

func (c *SyncServiceClient) Status(ctx context.Context, req *connect.Request[SyncStatusRequest]) (*connect.Response[SyncStatusResponse], error) {
	return c.status.CallUnary(ctx, req)
}
