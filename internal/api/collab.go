package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
)

// CollabServiceName is the fully-qualified name of the CollabService.
const CollabServiceName = Package + ".CollabService"

// Procedure paths.
const (
	CollabServiceCreateCollabGoalProcedure   = "/" + CollabServiceName + "/CreateCollabGoal"
	CollabServiceJoinCollabGoalProcedure     = "/" + CollabServiceName + "/JoinCollabGoal"
	CollabServiceLeaveCollabGoalProcedure    = "/" + CollabServiceName + "/LeaveCollabGoal"
	CollabServiceDeleteCollabGoalProcedure   = "/" + CollabServiceName + "/DeleteCollabGoal"
	CollabServiceAddGoalCategoryProcedure    = "/" + CollabServiceName + "/AddGoalCategory"
	CollabServiceUpdateGoalCategoryProcedure = "/" + CollabServiceName + "/UpdateGoalCategory"
	CollabServiceRemoveGoalCategoryProcedure = "/" + CollabServiceName + "/RemoveGoalCategory"
	CollabServiceContributeProcedure         = "/" + CollabServiceName + "/Contribute"
	CollabServiceListContributionsProcedure  = "/" + CollabServiceName + "/ListContributions"
	CollabServiceGetCollabGoalProcedure      = "/" + CollabServiceName + "/GetCollabGoal"
	CollabServiceListCollabGoalsProcedure    = "/" + CollabServiceName + "/ListCollabGoals"
)

type CreateCollabGoalRequest struct {
	Name       string            `json:"name"`
	Categories []NewGoalCategory `json:"categories,omitempty"`
}

type CollabGoalResponse struct {
	Goal CollabGoal `json:"goal"`
}

type JoinCollabGoalRequest struct {
	InviteCode string `json:"invite_code"`
}

type LeaveCollabGoalRequest struct {
	GoalID string `json:"goal_id"`
}

type LeaveCollabGoalResponse struct{}

type DeleteCollabGoalRequest struct {
	GoalID string `json:"goal_id"`
}

type DeleteCollabGoalResponse struct{}

type AddGoalCategoryRequest struct {
	GoalID       string          `json:"goal_id"`
	Name         string          `json:"name"`
	TargetAmount decimal.Decimal `json:"target_amount"`
}

type UpdateGoalCategoryRequest struct {
	GoalID       string          `json:"goal_id"`
	CategoryID   string          `json:"category_id"`
	Name         string          `json:"name"`
	TargetAmount decimal.Decimal `json:"target_amount"`
}

type RemoveGoalCategoryRequest struct {
	GoalID     string `json:"goal_id"`
	CategoryID string `json:"category_id"`
}

type ContributeRequest struct {
	GoalID     string          `json:"goal_id"`
	CategoryID string          `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note,omitempty"`
}

type ContributeResponse struct {
	Contribution Contribution `json:"contribution"`
	Goal         CollabGoal   `json:"goal"`
}

type ListContributionsRequest struct {
	GoalID string `json:"goal_id"`
}

type ListContributionsResponse struct {
	Contributions []Contribution `json:"contributions"`
}

type GetCollabGoalRequest struct {
	GoalID string `json:"goal_id"`
}

type ListCollabGoalsRequest struct{}

type ListCollabGoalsResponse struct {
	Goals []CollabGoal `json:"goals"`
}

// CollabServiceHandler is implemented by the server side of the CollabService.
type CollabServiceHandler interface {
	CreateCollabGoal(context.Context, *connect.Request[CreateCollabGoalRequest]) (*connect.Response[CollabGoalResponse], error)
	JoinCollabGoal(context.Context, *connect.Request[JoinCollabGoalRequest]) (*connect.Response[CollabGoalResponse], error)
	LeaveCollabGoal(context.Context, *connect.Request[LeaveCollabGoalRequest]) (*connect.Response[LeaveCollabGoalResponse], error)
	DeleteCollabGoal(context.Context, *connect.Request[DeleteCollabGoalRequest]) (*connect.Response[DeleteCollabGoalResponse], error)
	AddGoalCategory(context.Context, *connect.Request[AddGoalCategoryRequest]) (*connect.Response[CollabGoalResponse], error)
	UpdateGoalCategory(context.Context, *connect.Request[UpdateGoalCategoryRequest]) (*connect.Response[CollabGoalResponse], error)
	RemoveGoalCategory(context.Context, *connect.Request[RemoveGoalCategoryRequest]) (*connect.Response[CollabGoalResponse], error)
	Contribute(context.Context, *connect.Request[ContributeRequest]) (*connect.Response[ContributeResponse], error)
	ListContributions(context.Context, *connect.Request[ListContributionsRequest]) (*connect.Response[ListContributionsResponse], error)
	GetCollabGoal(context.Context, *connect.Request[GetCollabGoalRequest]) (*connect.Response[CollabGoalResponse], error)
	ListCollabGoals(context.Context, *connect.Request[ListCollabGoalsRequest]) (*connect.Response[ListCollabGoalsResponse], error)
}

// NewCollabServiceHandler builds an HTTP handler for every CollabService procedure and
// returns the path prefix to mount it under.
func NewCollabServiceHandler(svc CollabServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return serviceHandler(CollabServiceName,
		unary(CollabServiceCreateCollabGoalProcedure, svc.CreateCollabGoal, opts),
		unary(CollabServiceJoinCollabGoalProcedure, svc.JoinCollabGoal, opts),
		unary(CollabServiceLeaveCollabGoalProcedure, svc.LeaveCollabGoal, opts),
		unary(CollabServiceDeleteCollabGoalProcedure, svc.DeleteCollabGoal, opts),
		unary(CollabServiceAddGoalCategoryProcedure, svc.AddGoalCategory, opts),
		unary(CollabServiceUpdateGoalCategoryProcedure, svc.UpdateGoalCategory, opts),
		unary(CollabServiceRemoveGoalCategoryProcedure, svc.RemoveGoalCategory, opts),
		unary(CollabServiceContributeProcedure, svc.Contribute, opts),
		unary(CollabServiceListContributionsProcedure, svc.ListContributions, opts),
		unary(CollabServiceGetCollabGoalProcedure, svc.GetCollabGoal, opts),
		unary(CollabServiceListCollabGoalsProcedure, svc.ListCollabGoals, opts),
	)
}

// CollabServiceClient calls a remote CollabService.
type CollabServiceClient struct {
	createCollabGoal   *connect.Client[CreateCollabGoalRequest, CollabGoalResponse]
	joinCollabGoal     *connect.Client[JoinCollabGoalRequest, CollabGoalResponse]
	leaveCollabGoal    *connect.Client[LeaveCollabGoalRequest, LeaveCollabGoalResponse]
	deleteCollabGoal   *connect.Client[DeleteCollabGoalRequest, DeleteCollabGoalResponse]
	addGoalCategory    *connect.Client[AddGoalCategoryRequest, CollabGoalResponse]
	updateGoalCategory *connect.Client[UpdateGoalCategoryRequest, CollabGoalResponse]
	removeGoalCategory *connect.Client[RemoveGoalCategoryRequest, CollabGoalResponse]
	contribute         *connect.Client[ContributeRequest, ContributeResponse]
	listContributions  *connect.Client[ListContributionsRequest, ListContributionsResponse]
	getCollabGoal      *connect.Client[GetCollabGoalRequest, CollabGoalResponse]
	listCollabGoals    *connect.Client[ListCollabGoalsRequest, ListCollabGoalsResponse]
}

// NewCollabServiceClient returns a client for the CollabService served at baseURL.
func NewCollabServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *CollabServiceClient {
	opts = clientOptions(opts)
	return &CollabServiceClient{
		createCollabGoal:   newClient[CreateCollabGoalRequest, CollabGoalResponse](httpClient, baseURL, CollabServiceCreateCollabGoalProcedure, opts),
		joinCollabGoal:     newClient[JoinCollabGoalRequest, CollabGoalResponse](httpClient, baseURL, CollabServiceJoinCollabGoalProcedure, opts),
		leaveCollabGoal:    newClient[LeaveCollabGoalRequest, LeaveCollabGoalResponse](httpClient, baseURL, CollabServiceLeaveCollabGoalProcedure, opts),
		deleteCollabGoal:   newClient[DeleteCollabGoalRequest, DeleteCollabGoalResponse](httpClient, baseURL, CollabServiceDeleteCollabGoalProcedure, opts),
		addGoalCategory:    newClient[AddGoalCategoryRequest, CollabGoalResponse](httpClient, baseURL, CollabServiceAddGoalCategoryProcedure, opts),
		updateGoalCategory: newClient[UpdateGoalCategoryRequest, CollabGoalResponse](httpClient, baseURL, CollabServiceUpdateGoalCategoryProcedure, opts),
		removeGoalCategory: newClient[RemoveGoalCategoryRequest, CollabGoalResponse](httpClient, baseURL, CollabServiceRemoveGoalCategoryProcedure, opts),
		contribute:         newClient[ContributeRequest, ContributeResponse](httpClient, baseURL, CollabServiceContributeProcedure, opts),
		listContributions:  newClient[ListContributionsRequest, ListContributionsResponse](httpClient, baseURL, CollabServiceListContributionsProcedure, opts),
		getCollabGoal:      newClient[GetCollabGoalRequest, CollabGoalResponse](httpClient, baseURL, CollabServiceGetCollabGoalProcedure, opts),
		listCollabGoals:    newClient[ListCollabGoalsRequest, ListCollabGoalsResponse](httpClient, baseURL, CollabServiceListCollabGoalsProcedure, opts),
	}
}

func (c *CollabServiceClient) CreateCollabGoal(ctx context.Context, req *connect.Request[CreateCollabGoalRequest]) (*connect.Response[CollabGoalResponse], error) {
	return c.createCollabGoal.CallUnary(ctx, req)
}

func (c *CollabServiceClient) JoinCollabGoal(ctx context.Context, req *connect.Request[JoinCollabGoalRequest]) (*connect.Response[CollabGoalResponse], error) {
	return c.joinCollabGoal.CallUnary(ctx, req)
}

func (c *CollabServiceClient) LeaveCollabGoal(ctx context.Context, req *connect.Request[LeaveCollabGoalRequest]) (*connect.Response[LeaveCollabGoalResponse], error) {
	return c.leaveCollabGoal.CallUnary(ctx, req)
}

func (c *CollabServiceClient) DeleteCollabGoal(ctx context.Context, req *connect.Request[DeleteCollabGoalRequest]) (*connect.Response[DeleteCollabGoalResponse], error) {
	return c.deleteCollabGoal.CallUnary(ctx, req)
}

func (c *CollabServiceClient) AddGoalCategory(ctx context.Context, req *connect.Request[AddGoalCategoryRequest]) (*connect.Response[CollabGoalResponse], error) {
	return c.addGoalCategory.CallUnary(ctx, req)
}

func (c *CollabServiceClient) UpdateGoalCategory(ctx context.Context, req *connect.Request[UpdateGoalCategoryRequest]) (*connect.Response[CollabGoalResponse], error) {
	return c.updateGoalCategory.CallUnary(ctx, req)
}

func (c *CollabServiceClient) RemoveGoalCategory(ctx context.Context, req *connect.Request[RemoveGoalCategoryRequest]) (*connect.Response[CollabGoalResponse], error) {
	return c.removeGoalCategory.CallUnary(ctx, req)
}

func (c *CollabServiceClient) Contribute(ctx context.Context, req *connect.Request[ContributeRequest]) (*connect.Response[ContributeResponse], error) {
	return c.contribute.CallUnary(ctx, req)
}

func (c *CollabServiceClient) ListContributions(ctx context.Context, req *connect.Request[ListContributionsRequest]) (*connect.Response[ListContributionsResponse], error) {
	return c.listContributions.CallUnary(ctx, req)
}

func (c *CollabServiceClient) GetCollabGoal(ctx context.Context, req *connect.Request[GetCollabGoalRequest]) (*connect.Response[CollabGoalResponse], error) {
	return c.getCollabGoal.CallUnary(ctx, req)
}

func (c *CollabServiceClient) ListCollabGoals(ctx context.Context, req *connect.Request[ListCollabGoalsRequest]) (*connect.Response[ListCollabGoalsResponse], error) {
	return c.listCollabGoals.CallUnary(ctx, req)
}
