package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
)

// ExpenseServiceName is the fully-qualified name of the ExpenseService.
const ExpenseServiceName = Package + ".ExpenseService"

// Procedure paths.
const (
	ExpenseServiceCreateCategoryProcedure     = "/" + ExpenseServiceName + "/CreateCategory"
	ExpenseServiceListCategoriesProcedure     = "/" + ExpenseServiceName + "/ListCategories"
	ExpenseServiceRenameCategoryProcedure     = "/" + ExpenseServiceName + "/RenameCategory"
	ExpenseServiceDeleteCategoryProcedure     = "/" + ExpenseServiceName + "/DeleteCategory"
	ExpenseServiceCreateExpenseProcedure      = "/" + ExpenseServiceName + "/CreateExpense"
	ExpenseServiceUpdateExpenseProcedure      = "/" + ExpenseServiceName + "/UpdateExpense"
	ExpenseServiceDeleteExpenseProcedure      = "/" + ExpenseServiceName + "/DeleteExpense"
	ExpenseServiceListExpensesProcedure       = "/" + ExpenseServiceName + "/ListExpenses"
	ExpenseServiceGetSpendingSummaryProcedure = "/" + ExpenseServiceName + "/GetSpendingSummary"
)

type CreateCategoryRequest struct {
	Name string `json:"name"`
}

type CategoryResponse struct {
	Category Category `json:"category"`
}

type ListCategoriesRequest struct{}

type ListCategoriesResponse struct {
	Categories []Category `json:"categories"`
}

type RenameCategoryRequest struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}

type DeleteCategoryRequest struct {
	CategoryID string `json:"category_id"`
}

type DeleteCategoryResponse struct{}

type CreateExpenseRequest struct {
	CategoryID  string          `json:"category_id"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Description string          `json:"description,omitempty"`
	StartTime   string          `json:"start_time,omitempty"`
	EndTime     string          `json:"end_time,omitempty"`
	PhotoPath   string          `json:"photo_path,omitempty"`
}

// UpdateExpenseRequest replaces every field of an existing expense.
type UpdateExpenseRequest struct {
	ExpenseID   string          `json:"expense_id"`
	CategoryID  string          `json:"category_id"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Description string          `json:"description,omitempty"`
	StartTime   string          `json:"start_time,omitempty"`
	EndTime     string          `json:"end_time,omitempty"`
	PhotoPath   string          `json:"photo_path,omitempty"`
}

type ExpenseResponse struct {
	Expense Expense `json:"expense"`
	// Goal is the progress of the expense's month, when a goal is set for it.
	Goal *GoalProgress `json:"goal,omitempty"`
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
}

type DeleteExpenseResponse struct{}

// ListExpensesRequest filters by an inclusive date range and optional category.
type ListExpensesRequest struct {
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
}

type ListExpensesResponse struct {
	Expenses []Expense       `json:"expenses"`
	Total    decimal.Decimal `json:"total"`
}

// GetSpendingSummaryRequest selects a range either by Month or by From/To.
type GetSpendingSummaryRequest struct {
	Month string `json:"month,omitempty"`
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
}

type GetSpendingSummaryResponse struct {
	From       string          `json:"from"`
	To         string          `json:"to"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	Categories []CategoryTotal `json:"categories"`
}

// ExpenseServiceHandler is implemented by the server side of the ExpenseService.
type ExpenseServiceHandler interface {
	CreateCategory(context.Context, *connect.Request[CreateCategoryRequest]) (*connect.Response[CategoryResponse], error)
	ListCategories(context.Context, *connect.Request[ListCategoriesRequest]) (*connect.Response[ListCategoriesResponse], error)
	RenameCategory(context.Context, *connect.Request[RenameCategoryRequest]) (*connect.Response[CategoryResponse], error)
	DeleteCategory(context.Context, *connect.Request[DeleteCategoryRequest]) (*connect.Response[DeleteCategoryResponse], error)
	CreateExpense(context.Context, *connect.Request[CreateExpenseRequest]) (*connect.Response[ExpenseResponse], error)
	UpdateExpense(context.Context, *connect.Request[UpdateExpenseRequest]) (*connect.Response[ExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error)
	GetSpendingSummary(context.Context, *connect.Request[GetSpendingSummaryRequest]) (*connect.Response[GetSpendingSummaryResponse], error)
}

// NewExpenseServiceHandler builds an HTTP handler for every ExpenseService procedure and
// returns the path prefix to mount it under.
func NewExpenseServiceHandler(svc ExpenseServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return serviceHandler(ExpenseServiceName,
		unary(ExpenseServiceCreateCategoryProcedure, svc.CreateCategory, opts),
		unary(ExpenseServiceListCategoriesProcedure, svc.ListCategories, opts),
		unary(ExpenseServiceRenameCategoryProcedure, svc.RenameCategory, opts),
		unary(ExpenseServiceDeleteCategoryProcedure, svc.DeleteCategory, opts),
		unary(ExpenseServiceCreateExpenseProcedure, svc.CreateExpense, opts),
		unary(ExpenseServiceUpdateExpenseProcedure, svc.UpdateExpense, opts),
		unary(ExpenseServiceDeleteExpenseProcedure, svc.DeleteExpense, opts),
		unary(ExpenseServiceListExpensesProcedure, svc.ListExpenses, opts),
		unary(ExpenseServiceGetSpendingSummaryProcedure, svc.GetSpendingSummary, opts),
	)
}

// ExpenseServiceClient calls a remote ExpenseService.
type ExpenseServiceClient struct {
	createCategory     *connect.Client[CreateCategoryRequest, CategoryResponse]
	listCategories     *connect.Client[ListCategoriesRequest, ListCategoriesResponse]
	renameCategory     *connect.Client[RenameCategoryRequest, CategoryResponse]
	deleteCategory     *connect.Client[DeleteCategoryRequest, DeleteCategoryResponse]
	createExpense      *connect.Client[CreateExpenseRequest, ExpenseResponse]
	updateExpense      *connect.Client[UpdateExpenseRequest, ExpenseResponse]
	deleteExpense      *connect.Client[DeleteExpenseRequest, DeleteExpenseResponse]
	listExpenses       *connect.Client[ListExpensesRequest, ListExpensesResponse]
	getSpendingSummary *connect.Client[GetSpendingSummaryRequest, GetSpendingSummaryResponse]
}

// NewExpenseServiceClient returns a client for the ExpenseService served at baseURL.
func NewExpenseServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ExpenseServiceClient {
	opts = clientOptions(opts)
	return &ExpenseServiceClient{
		createCategory:     newClient[CreateCategoryRequest, CategoryResponse](httpClient, baseURL, ExpenseServiceCreateCategoryProcedure, opts),
		listCategories:     newClient[ListCategoriesRequest, ListCategoriesResponse](httpClient, baseURL, ExpenseServiceListCategoriesProcedure, opts),
		renameCategory:     newClient[RenameCategoryRequest, CategoryResponse](httpClient, baseURL, ExpenseServiceRenameCategoryProcedure, opts),
		deleteCategory:     newClient[DeleteCategoryRequest, DeleteCategoryResponse](httpClient, baseURL, ExpenseServiceDeleteCategoryProcedure, opts),
		createExpense:      newClient[CreateExpenseRequest, ExpenseResponse](httpClient, baseURL, ExpenseServiceCreateExpenseProcedure, opts),
		updateExpense:      newClient[UpdateExpenseRequest, ExpenseResponse](httpClient, baseURL, ExpenseServiceUpdateExpenseProcedure, opts),
		deleteExpense:      newClient[DeleteExpenseRequest, DeleteExpenseResponse](httpClient, baseURL, ExpenseServiceDeleteExpenseProcedure, opts),
		listExpenses:       newClient[ListExpensesRequest, ListExpensesResponse](httpClient, baseURL, ExpenseServiceListExpensesProcedure, opts),
		getSpendingSummary: newClient[GetSpendingSummaryRequest, GetSpendingSummaryResponse](httpClient, baseURL, ExpenseServiceGetSpendingSummaryProcedure, opts),
	}
}

func (c *ExpenseServiceClient) CreateCategory(ctx context.Context, req *connect.Request[CreateCategoryRequest]) (*connect.Response[CategoryResponse], error) {
	return c.createCategory.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) ListCategories(ctx context.Context, req *connect.Request[ListCategoriesRequest]) (*connect.Response[ListCategoriesResponse], error) {
	return c.listCategories.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) RenameCategory(ctx context.Context, req *connect.Request[RenameCategoryRequest]) (*connect.Response[CategoryResponse], error) {
	return c.renameCategory.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) DeleteCategory(ctx context.Context, req *connect.Request[DeleteCategoryRequest]) (*connect.Response[DeleteCategoryResponse], error) {
	return c.deleteCategory.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) UpdateExpense(ctx context.Context, req *connect.Request[UpdateExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	return c.updateExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) GetSpendingSummary(ctx context.Context, req *connect.Request[GetSpendingSummaryRequest]) (*connect.Response[GetSpendingSummaryResponse], error) {
	return c.getSpendingSummary.CallUnary(ctx, req)
}
