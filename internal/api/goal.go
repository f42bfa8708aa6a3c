package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
)

// GoalServiceName is the fully-qualified name of the GoalService.
const GoalServiceName = Package + ".GoalService"

// Procedure paths.
const (
	GoalServiceSetGoalProcedure         = "/" + GoalServiceName + "/SetGoal"
	GoalServiceGetGoalProcedure         = "/" + GoalServiceName + "/GetGoal"
	GoalServiceListGoalsProcedure       = "/" + GoalServiceName + "/ListGoals"
	GoalServiceDeleteGoalProcedure      = "/" + GoalServiceName + "/DeleteGoal"
	GoalServiceGetGoalProgressProcedure = "/" + GoalServiceName + "/GetGoalProgress"
)

type SetGoalRequest struct {
	Month     string          `json:"month"`
	MinAmount decimal.Decimal `json:"min_amount"`
	MaxAmount decimal.Decimal `json:"max_amount"`
}

type GoalResponse struct {
	Goal Goal `json:"goal"`
}

type GetGoalRequest struct {
	Month string `json:"month"`
}

type ListGoalsRequest struct{}

type ListGoalsResponse struct {
	Goals []Goal `json:"goals"`
}

type DeleteGoalRequest struct {
	Month string `json:"month"`
}

type DeleteGoalResponse struct{}

type GetGoalProgressRequest struct {
	Month string `json:"month"`
}

type GetGoalProgressResponse struct {
	Goal     Goal         `json:"goal"`
	Progress GoalProgress `json:"progress"`
}

// GoalServiceHandler is implemented by the server side of the GoalService.
type GoalServiceHandler interface {
	SetGoal(context.Context, *connect.Request[SetGoalRequest]) (*connect.Response[GoalResponse], error)
	GetGoal(context.Context, *connect.Request[GetGoalRequest]) (*connect.Response[GoalResponse], error)
	ListGoals(context.Context, *connect.Request[ListGoalsRequest]) (*connect.Response[ListGoalsResponse], error)
	DeleteGoal(context.Context, *connect.Request[DeleteGoalRequest]) (*connect.Response[DeleteGoalResponse], error)
	GetGoalProgress(context.Context, *connect.Request[GetGoalProgressRequest]) (*connect.Response[GetGoalProgressResponse], error)
}

// NewGoalServiceHandler builds an HTTP handler for every GoalService procedure and
// returns the path prefix to mount it under.
func NewGoalServiceHandler(svc GoalServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return serviceHandler(GoalServiceName,
		unary(GoalServiceSetGoalProcedure, svc.SetGoal, opts),
		unary(GoalServiceGetGoalProcedure, svc.GetGoal, opts),
		unary(GoalServiceListGoalsProcedure, svc.ListGoals, opts),
		unary(GoalServiceDeleteGoalProcedure, svc.DeleteGoal, opts),
		unary(GoalServiceGetGoalProgressProcedure, svc.GetGoalProgress, opts),
	)
}

// GoalServiceClient calls a remote GoalService.
type GoalServiceClient struct {
	setGoal         *connect.Client[SetGoalRequest, GoalResponse]
	getGoal         *connect.Client[GetGoalRequest, GoalResponse]
	listGoals       *connect.Client[ListGoalsRequest, ListGoalsResponse]
	deleteGoal      *connect.Client[DeleteGoalRequest, DeleteGoalResponse]
	getGoalProgress *connect.Client[GetGoalProgressRequest, GetGoalProgressResponse]
}

// NewGoalServiceClient returns a client for the GoalService served at baseURL.
func NewGoalServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GoalServiceClient {
	opts = clientOptions(opts)
	return &GoalServiceClient{
		setGoal:         newClient[SetGoalRequest, GoalResponse](httpClient, baseURL, GoalServiceSetGoalProcedure, opts),
		getGoal:         newClient[GetGoalRequest, GoalResponse](httpClient, baseURL, GoalServiceGetGoalProcedure, opts),
		listGoals:       newClient[ListGoalsRequest, ListGoalsResponse](httpClient, baseURL, GoalServiceListGoalsProcedure, opts),
		deleteGoal:      newClient[DeleteGoalRequest, DeleteGoalResponse](httpClient, baseURL, GoalServiceDeleteGoalProcedure, opts),
		getGoalProgress: newClient[GetGoalProgressRequest, GetGoalProgressResponse](httpClient, baseURL, GoalServiceGetGoalProgressProcedure, opts),
	}
}

func (c *GoalServiceClient) SetGoal(ctx context.Context, req *connect.Request[SetGoalRequest]) (*connect.Response[GoalResponse], error) {
	return c.setGoal.CallUnary(ctx, req)
}

func (c *GoalServiceClient) GetGoal(ctx context.Context, req *connect.Request[GetGoalRequest]) (*connect.Response[GoalResponse], error) {
	return c.getGoal.CallUnary(ctx, req)
}

func (c *GoalServiceClient) ListGoals(ctx context.Context, req *connect.Request[ListGoalsRequest]) (*connect.Response[ListGoalsResponse], error) {
	return c.listGoals.CallUnary(ctx, req)
}

func (c *GoalServiceClient) DeleteGoal(ctx context.Context, req *connect.Request[DeleteGoalRequest]) (*connect.Response[DeleteGoalResponse], error) {
	return c.deleteGoal.CallUnary(ctx, req)
}

func (c *GoalServiceClient) GetGoalProgress(ctx context.Context, req *connect.Request[GetGoalProgressRequest]) (*connect.Response[GetGoalProgressResponse], error) {
	return c.getGoalProgress.CallUnary(ctx, req)
}
