package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
)

// RaceServiceName is the fully-qualified name of the RaceService.
const RaceServiceName = Package + ".RaceService"

// Procedure paths.
const (
	RaceServiceCreateRaceProcedure = "/" + RaceServiceName + "/CreateRace"
	RaceServiceJoinRaceProcedure   = "/" + RaceServiceName + "/JoinRace"
	RaceServiceLeaveRaceProcedure  = "/" + RaceServiceName + "/LeaveRace"
	RaceServiceUpdateRaceProcedure = "/" + RaceServiceName + "/UpdateRace"
	RaceServiceCancelRaceProcedure = "/" + RaceServiceName + "/CancelRace"
	RaceServiceGetRaceProcedure    = "/" + RaceServiceName + "/GetRace"
	RaceServiceListRacesProcedure  = "/" + RaceServiceName + "/ListRaces"
)

type CreateRaceRequest struct {
	Name      string          `json:"name"`
	Budget    decimal.Decimal `json:"budget"`
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
}

type RaceResponse struct {
	Race Race `json:"race"`
}

type JoinRaceRequest struct {
	InviteCode string `json:"invite_code"`
}

type LeaveRaceRequest struct {
	RaceID string `json:"race_id"`
}

type LeaveRaceResponse struct{}

type UpdateRaceRequest struct {
	RaceID    string          `json:"race_id"`
	Name      string          `json:"name"`
	Budget    decimal.Decimal `json:"budget"`
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
}

type CancelRaceRequest struct {
	RaceID string `json:"race_id"`
}

type GetRaceRequest struct {
	RaceID string `json:"race_id"`
}

type ListRacesRequest struct{}

type ListRacesResponse struct {
	Races []Race `json:"races"`
}

// RaceServiceHandler is implemented by the server side of the RaceService.
type RaceServiceHandler interface {
	CreateRace(context.Context, *connect.Request[CreateRaceRequest]) (*connect.Response[RaceResponse], error)
	JoinRace(context.Context, *connect.Request[JoinRaceRequest]) (*connect.Response[RaceResponse], error)
	LeaveRace(context.Context, *connect.Request[LeaveRaceRequest]) (*connect.Response[LeaveRaceResponse], error)
	UpdateRace(context.Context, *connect.Request[UpdateRaceRequest]) (*connect.Response[RaceResponse], error)
	CancelRace(context.Context, *connect.Request[CancelRaceRequest]) (*connect.Response[RaceResponse], error)
	GetRace(context.Context, *connect.Request[GetRaceRequest]) (*connect.Response[RaceResponse], error)
	ListRaces(context.Context, *connect.Request[ListRacesRequest]) (*connect.Response[ListRacesResponse], error)
}

// NewRaceServiceHandler builds an HTTP handler for every RaceService procedure and
// returns the path prefix to mount it under.
func NewRaceServiceHandler(svc RaceServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return serviceHandler(RaceServiceName,
		unary(RaceServiceCreateRaceProcedure, svc.CreateRace, opts),
		unary(RaceServiceJoinRaceProcedure, svc.JoinRace, opts),
		unary(RaceServiceLeaveRaceProcedure, svc.LeaveRace, opts),
		unary(RaceServiceUpdateRaceProcedure, svc.UpdateRace, opts),
		unary(RaceServiceCancelRaceProcedure, svc.CancelRace, opts),
		unary(RaceServiceGetRaceProcedure, svc.GetRace, opts),
		unary(RaceServiceListRacesProcedure, svc.ListRaces, opts),
	)
}

// RaceServiceClient calls a remote RaceService.
type RaceServiceClient struct {
	createRace *connect.Client[CreateRaceRequest, RaceResponse]
	joinRace   *connect.Client[JoinRaceRequest, RaceResponse]
	leaveRace  *connect.Client[LeaveRaceRequest, LeaveRaceResponse]
	updateRace *connect.Client[UpdateRaceRequest, RaceResponse]
	cancelRace *connect.Client[CancelRaceRequest, RaceResponse]
	getRace    *connect.Client[GetRaceRequest, RaceResponse]
	listRaces  *connect.Client[ListRacesRequest, ListRacesResponse]
}

// NewRaceServiceClient returns a client for the RaceService served at baseURL.
func NewRaceServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *RaceServiceClient {
	opts = clientOptions(opts)
	return &RaceServiceClient{
		createRace: newClient[CreateRaceRequest, RaceResponse](httpClient, baseURL, RaceServiceCreateRaceProcedure, opts),
		joinRace:   newClient[JoinRaceRequest, RaceResponse](httpClient, baseURL, RaceServiceJoinRaceProcedure, opts),
		leaveRace:  newClient[LeaveRaceRequest, LeaveRaceResponse](httpClient, baseURL, RaceServiceLeaveRaceProcedure, opts),
		updateRace: newClient[UpdateRaceRequest, RaceResponse](httpClient, baseURL, RaceServiceUpdateRaceProcedure, opts),
		cancelRace: newClient[CancelRaceRequest, RaceResponse](httpClient, baseURL, RaceServiceCancelRaceProcedure, opts),
		getRace:    newClient[GetRaceRequest, RaceResponse](httpClient, baseURL, RaceServiceGetRaceProcedure, opts),
		listRaces:  newClient[ListRacesRequest, ListRacesResponse](httpClient, baseURL, RaceServiceListRacesProcedure, opts),
	}
}

func (c *RaceServiceClient) CreateRace(ctx context.Context, req *connect.Request[CreateRaceRequest]) (*connect.Response[RaceResponse], error) {
	return c.createRace.CallUnary(ctx, req)
}

func (c *RaceServiceClient) JoinRace(ctx context.Context, req *connect.Request[JoinRaceRequest]) (*connect.Response[RaceResponse], error) {
	return c.joinRace.CallUnary(ctx, req)
}

func (c *RaceServiceClient) LeaveRace(ctx context.Context, req *connect.Request[LeaveRaceRequest]) (*connect.Response[LeaveRaceResponse], error) {
	return c.leaveRace.CallUnary(ctx, req)
}

func (c *RaceServiceClient) UpdateRace(ctx context.Context, req *connect.Request[UpdateRaceRequest]) (*connect.Response[RaceResponse], error) {
	return c.updateRace.CallUnary(ctx, req)
}

func (c *RaceServiceClient) CancelRace(ctx context.Context, req *connect.Request[CancelRaceRequest]) (*connect.Response[RaceResponse], error) {
	return c.cancelRace.CallUnary(ctx, req)
}

func (c *RaceServiceClient) GetRace(ctx context.Context, req *connect.Request[GetRaceRequest]) (*connect.Response[RaceResponse], error) {
	return c.getRace.CallUnary(ctx, req)
}

func (c *RaceServiceClient) ListRaces(ctx context.Context, req *connect.Request[ListRacesRequest]) (*connect.Response[ListRacesResponse], error) {
	return c.listRaces.CallUnary(ctx, req)
}
