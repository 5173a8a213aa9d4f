// Package apiconnect wires the susu services to Connect handlers and clients.
package apiconnect

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/sususave/pkg/api"
)

// Package is the RPC package prefix of every service.
const Package = "susu.v1"

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(api.JSONCodec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(api.JSONCodec{})}, opts...)
}

func unimplemented(procedure string) error {
	return connect.NewError(connect.CodeUnimplemented, errors.New(procedure+" is not implemented"))
}

// GroupServiceName is the fully-qualified name of the GroupService.
const GroupServiceName = Package + ".GroupService"

const (
	GroupServiceCreateGroupProcedure      = "/" + GroupServiceName + "/CreateGroup"
	GroupServiceGetGroupProcedure         = "/" + GroupServiceName + "/GetGroup"
	GroupServiceJoinGroupProcedure        = "/" + GroupServiceName + "/JoinGroup"
	GroupServiceDeactivateMemberProcedure = "/" + GroupServiceName + "/DeactivateMember"
	GroupServiceSetGroupStatusProcedure   = "/" + GroupServiceName + "/SetGroupStatus"
	GroupServiceGetRoundStatusProcedure   = "/" + GroupServiceName + "/GetRoundStatus"
	GroupServiceListAuditEntriesProcedure = "/" + GroupServiceName + "/ListAuditEntries"
)

// GroupServiceHandler manages groups and their memberships.
type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error)
	JoinGroup(context.Context, *connect.Request[api.JoinGroupRequest]) (*connect.Response[api.JoinGroupResponse], error)
	DeactivateMember(context.Context, *connect.Request[api.DeactivateMemberRequest]) (*connect.Response[api.DeactivateMemberResponse], error)
	SetGroupStatus(context.Context, *connect.Request[api.SetGroupStatusRequest]) (*connect.Response[api.SetGroupStatusResponse], error)
	GetRoundStatus(context.Context, *connect.Request[api.GetRoundStatusRequest]) (*connect.Response[api.GetRoundStatusResponse], error)
	ListAuditEntries(context.Context, *connect.Request[api.ListAuditEntriesRequest]) (*connect.Response[api.ListAuditEntriesResponse], error)
}

// NewGroupServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	createGroup := connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...)
	getGroup := connect.NewUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts...)
	joinGroup := connect.NewUnaryHandler(GroupServiceJoinGroupProcedure, svc.JoinGroup, opts...)
	deactivateMember := connect.NewUnaryHandler(GroupServiceDeactivateMemberProcedure, svc.DeactivateMember, opts...)
	setGroupStatus := connect.NewUnaryHandler(GroupServiceSetGroupStatusProcedure, svc.SetGroupStatus, opts...)
	getRoundStatus := connect.NewUnaryHandler(GroupServiceGetRoundStatusProcedure, svc.GetRoundStatus, opts...)
	listAuditEntries := connect.NewUnaryHandler(GroupServiceListAuditEntriesProcedure, svc.ListAuditEntries, opts...)
	return "/" + GroupServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case GroupServiceCreateGroupProcedure:
			createGroup.ServeHTTP(w, r)
		case GroupServiceGetGroupProcedure:
			getGroup.ServeHTTP(w, r)
		case GroupServiceJoinGroupProcedure:
			joinGroup.ServeHTTP(w, r)
		case GroupServiceDeactivateMemberProcedure:
			deactivateMember.ServeHTTP(w, r)
		case GroupServiceSetGroupStatusProcedure:
			setGroupStatus.ServeHTTP(w, r)
		case GroupServiceGetRoundStatusProcedure:
			getRoundStatus.ServeHTTP(w, r)
		case GroupServiceListAuditEntriesProcedure:
			listAuditEntries.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// GroupServiceClient is a client for the GroupService.
type GroupServiceClient interface {
	CreateGroup(context.Context, *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error)
	JoinGroup(context.Context, *connect.Request[api.JoinGroupRequest]) (*connect.Response[api.JoinGroupResponse], error)
	DeactivateMember(context.Context, *connect.Request[api.DeactivateMemberRequest]) (*connect.Response[api.DeactivateMemberResponse], error)
	SetGroupStatus(context.Context, *connect.Request[api.SetGroupStatusRequest]) (*connect.Response[api.SetGroupStatusResponse], error)
	GetRoundStatus(context.Context, *connect.Request[api.GetRoundStatusRequest]) (*connect.Response[api.GetRoundStatusResponse], error)
	ListAuditEntries(context.Context, *connect.Request[api.ListAuditEntriesRequest]) (*connect.Response[api.ListAuditEntriesResponse], error)
}

// NewGroupServiceClient constructs a client for the GroupService. baseURL is the
// server root, e.g. http://localhost:8080.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) GroupServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &groupServiceClient{
		createGroup:      connect.NewClient[api.CreateGroupRequest, api.CreateGroupResponse](httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		getGroup:         connect.NewClient[api.GetGroupRequest, api.GetGroupResponse](httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		joinGroup:        connect.NewClient[api.JoinGroupRequest, api.JoinGroupResponse](httpClient, baseURL+GroupServiceJoinGroupProcedure, opts...),
		deactivateMember: connect.NewClient[api.DeactivateMemberRequest, api.DeactivateMemberResponse](httpClient, baseURL+GroupServiceDeactivateMemberProcedure, opts...),
		setGroupStatus:   connect.NewClient[api.SetGroupStatusRequest, api.SetGroupStatusResponse](httpClient, baseURL+GroupServiceSetGroupStatusProcedure, opts...),
		getRoundStatus:   connect.NewClient[api.GetRoundStatusRequest, api.GetRoundStatusResponse](httpClient, baseURL+GroupServiceGetRoundStatusProcedure, opts...),
		listAuditEntries: connect.NewClient[api.ListAuditEntriesRequest, api.ListAuditEntriesResponse](httpClient, baseURL+GroupServiceListAuditEntriesProcedure, opts...),
	}
}

type groupServiceClient struct {
	createGroup      *connect.Client[api.CreateGroupRequest, api.CreateGroupResponse]
	getGroup         *connect.Client[api.GetGroupRequest, api.GetGroupResponse]
	joinGroup        *connect.Client[api.JoinGroupRequest, api.JoinGroupResponse]
	deactivateMember *connect.Client[api.DeactivateMemberRequest, api.DeactivateMemberResponse]
	setGroupStatus   *connect.Client[api.SetGroupStatusRequest, api.SetGroupStatusResponse]
	getRoundStatus   *connect.Client[api.GetRoundStatusRequest, api.GetRoundStatusResponse]
	listAuditEntries *connect.Client[api.ListAuditEntriesRequest, api.ListAuditEntriesResponse]
}

func (c *groupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) JoinGroup(ctx context.Context, req *connect.Request[api.JoinGroupRequest]) (*connect.Response[api.JoinGroupResponse], error) {
	return c.joinGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) DeactivateMember(ctx context.Context, req *connect.Request[api.DeactivateMemberRequest]) (*connect.Response[api.DeactivateMemberResponse], error) {
	return c.deactivateMember.CallUnary(ctx, req)
}

func (c *groupServiceClient) SetGroupStatus(ctx context.Context, req *connect.Request[api.SetGroupStatusRequest]) (*connect.Response[api.SetGroupStatusResponse], error) {
	return c.setGroupStatus.CallUnary(ctx, req)
}

func (c *groupServiceClient) GetRoundStatus(ctx context.Context, req *connect.Request[api.GetRoundStatusRequest]) (*connect.Response[api.GetRoundStatusResponse], error) {
	return c.getRoundStatus.CallUnary(ctx, req)
}

func (c *groupServiceClient) ListAuditEntries(ctx context.Context, req *connect.Request[api.ListAuditEntriesRequest]) (*connect.Response[api.ListAuditEntriesResponse], error) {
	return c.listAuditEntries.CallUnary(ctx, req)
}

// UnimplementedGroupServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedGroupServiceHandler struct{}

func (UnimplementedGroupServiceHandler) CreateGroup(context.Context, *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	return nil, unimplemented(GroupServiceCreateGroupProcedure)
}

func (UnimplementedGroupServiceHandler) GetGroup(context.Context, *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	return nil, unimplemented(GroupServiceGetGroupProcedure)
}

func (UnimplementedGroupServiceHandler) JoinGroup(context.Context, *connect.Request[api.JoinGroupRequest]) (*connect.Response[api.JoinGroupResponse], error) {
	return nil, unimplemented(GroupServiceJoinGroupProcedure)
}

func (UnimplementedGroupServiceHandler) DeactivateMember(context.Context, *connect.Request[api.DeactivateMemberRequest]) (*connect.Response[api.DeactivateMemberResponse], error) {
	return nil, unimplemented(GroupServiceDeactivateMemberProcedure)
}

func (UnimplementedGroupServiceHandler) SetGroupStatus(context.Context, *connect.Request[api.SetGroupStatusRequest]) (*connect.Response[api.SetGroupStatusResponse], error) {
	return nil, unimplemented(GroupServiceSetGroupStatusProcedure)
}

func (UnimplementedGroupServiceHandler) GetRoundStatus(context.Context, *connect.Request[api.GetRoundStatusRequest]) (*connect.Response[api.GetRoundStatusResponse], error) {
	return nil, unimplemented(GroupServiceGetRoundStatusProcedure)
}

func (UnimplementedGroupServiceHandler) ListAuditEntries(context.Context, *connect.Request[api.ListAuditEntriesRequest]) (*connect.Response[api.ListAuditEntriesResponse], error) {
	return nil, unimplemented(GroupServiceListAuditEntriesProcedure)
}


// PaymentServiceName is the fully-qualified name of the PaymentService.
const PaymentServiceName = Package + ".PaymentService"

const (
	PaymentServiceInitiatePaymentProcedure = "/" + PaymentServiceName + "/InitiatePayment"
	PaymentServiceRetryPaymentProcedure    = "/" + PaymentServiceName + "/RetryPayment"
	PaymentServiceMarkCashPaidProcedure    = "/" + PaymentServiceName + "/MarkCashPaid"
	PaymentServiceGetDuePaymentProcedure   = "/" + PaymentServiceName + "/GetDuePayment"
	PaymentServiceListPaymentsProcedure    = "/" + PaymentServiceName + "/ListPayments"
)

// PaymentServiceHandler debits contributions and settles them in cash.
type PaymentServiceHandler interface {
	InitiatePayment(context.Context, *connect.Request[api.InitiatePaymentRequest]) (*connect.Response[api.InitiatePaymentResponse], error)
	RetryPayment(context.Context, *connect.Request[api.RetryPaymentRequest]) (*connect.Response[api.RetryPaymentResponse], error)
	MarkCashPaid(context.Context, *connect.Request[api.MarkCashPaidRequest]) (*connect.Response[api.MarkCashPaidResponse], error)
	GetDuePayment(context.Context, *connect.Request[api.GetDuePaymentRequest]) (*connect.Response[api.GetDuePaymentResponse], error)
	ListPayments(context.Context, *connect.Request[api.ListPaymentsRequest]) (*connect.Response[api.ListPaymentsResponse], error)
}

// NewPaymentServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewPaymentServiceHandler(svc PaymentServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	initiatePayment := connect.NewUnaryHandler(PaymentServiceInitiatePaymentProcedure, svc.InitiatePayment, opts...)
	retryPayment := connect.NewUnaryHandler(PaymentServiceRetryPaymentProcedure, svc.RetryPayment, opts...)
	markCashPaid := connect.NewUnaryHandler(PaymentServiceMarkCashPaidProcedure, svc.MarkCashPaid, opts...)
	getDuePayment := connect.NewUnaryHandler(PaymentServiceGetDuePaymentProcedure, svc.GetDuePayment, opts...)
	listPayments := connect.NewUnaryHandler(PaymentServiceListPaymentsProcedure, svc.ListPayments, opts...)
	return "/" + PaymentServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case PaymentServiceInitiatePaymentProcedure:
			initiatePayment.ServeHTTP(w, r)
		case PaymentServiceRetryPaymentProcedure:
			retryPayment.ServeHTTP(w, r)
		case PaymentServiceMarkCashPaidProcedure:
			markCashPaid.ServeHTTP(w, r)
		case PaymentServiceGetDuePaymentProcedure:
			getDuePayment.ServeHTTP(w, r)
		case PaymentServiceListPaymentsProcedure:
			listPayments.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// PaymentServiceClient is a client for the PaymentService.
type PaymentServiceClient interface {
	InitiatePayment(context.Context, *connect.Request[api.InitiatePaymentRequest]) (*connect.Response[api.InitiatePaymentResponse], error)
	RetryPayment(context.Context, *connect.Request[api.RetryPaymentRequest]) (*connect.Response[api.RetryPaymentResponse], error)
	MarkCashPaid(context.Context, *connect.Request[api.MarkCashPaidRequest]) (*connect.Response[api.MarkCashPaidResponse], error)
	GetDuePayment(context.Context, *connect.Request[api.GetDuePaymentRequest]) (*connect.Response[api.GetDuePaymentResponse], error)
	ListPayments(context.Context, *connect.Request[api.ListPaymentsRequest]) (*connect.Response[api.ListPaymentsResponse], error)
}

// NewPaymentServiceClient constructs a client for the PaymentService. baseURL is the
// server root, e.g. http://localhost:8080.
func NewPaymentServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) PaymentServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &paymentServiceClient{
		initiatePayment: connect.NewClient[api.InitiatePaymentRequest, api.InitiatePaymentResponse](httpClient, baseURL+PaymentServiceInitiatePaymentProcedure, opts...),
		retryPayment:    connect.NewClient[api.RetryPaymentRequest, api.RetryPaymentResponse](httpClient, baseURL+PaymentServiceRetryPaymentProcedure, opts...),
		markCashPaid:    connect.NewClient[api.MarkCashPaidRequest, api.MarkCashPaidResponse](httpClient, baseURL+PaymentServiceMarkCashPaidProcedure, opts...),
		getDuePayment:   connect.NewClient[api.GetDuePaymentRequest, api.GetDuePaymentResponse](httpClient, baseURL+PaymentServiceGetDuePaymentProcedure, opts...),
		listPayments:    connect.NewClient[api.ListPaymentsRequest, api.ListPaymentsResponse](httpClient, baseURL+PaymentServiceListPaymentsProcedure, opts...),
	}
}

type paymentServiceClient struct {
	initiatePayment *connect.Client[api.InitiatePaymentRequest, api.InitiatePaymentResponse]
	retryPayment    *connect.Client[api.RetryPaymentRequest, api.RetryPaymentResponse]
	markCashPaid    *connect.Client[api.MarkCashPaidRequest, api.MarkCashPaidResponse]
	getDuePayment   *connect.Client[api.GetDuePaymentRequest, api.GetDuePaymentResponse]
	listPayments    *connect.Client[api.ListPaymentsRequest, api.ListPaymentsResponse]
}

func (c *paymentServiceClient) InitiatePayment(ctx context.Context, req *connect.Request[api.InitiatePaymentRequest]) (*connect.Response[api.InitiatePaymentResponse], error) {
	return c.initiatePayment.CallUnary(ctx, req)
}

func (c *paymentServiceClient) RetryPayment(ctx context.Context, req *connect.Request[api.RetryPaymentRequest]) (*connect.Response[api.RetryPaymentResponse], error) {
	return c.retryPayment.CallUnary(ctx, req)
}

func (c *paymentServiceClient) MarkCashPaid(ctx context.Context, req *connect.Request[api.MarkCashPaidRequest]) (*connect.Response[api.MarkCashPaidResponse], error) {
	return c.markCashPaid.CallUnary(ctx, req)
}

func (c *paymentServiceClient) GetDuePayment(ctx context.Context, req *connect.Request[api.GetDuePaymentRequest]) (*connect.Response[api.GetDuePaymentResponse], error) {
	return c.getDuePayment.CallUnary(ctx, req)
}

func (c *paymentServiceClient) ListPayments(ctx context.Context, req *connect.Request[api.ListPaymentsRequest]) (*connect.Response[api.ListPaymentsResponse], error) {
	return c.listPayments.CallUnary(ctx, req)
}

// UnimplementedPaymentServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedPaymentServiceHandler struct{}

func (UnimplementedPaymentServiceHandler) InitiatePayment(context.Context, *connect.Request[api.InitiatePaymentRequest]) (*connect.Response[api.InitiatePaymentResponse], error) {
	return nil, unimplemented(PaymentServiceInitiatePaymentProcedure)
}

func (UnimplementedPaymentServiceHandler) RetryPayment(context.Context, *connect.Request[api.RetryPaymentRequest]) (*connect.Response[api.RetryPaymentResponse], error) {
	return nil, unimplemented(PaymentServiceRetryPaymentProcedure)
}

func (UnimplementedPaymentServiceHandler) MarkCashPaid(context.Context, *connect.Request[api.MarkCashPaidRequest]) (*connect.Response[api.MarkCashPaidResponse], error) {
	return nil, unimplemented(PaymentServiceMarkCashPaidProcedure)
}

func (UnimplementedPaymentServiceHandler) GetDuePayment(context.Context, *connect.Request[api.GetDuePaymentRequest]) (*connect.Response[api.GetDuePaymentResponse], error) {
	return nil, unimplemented(PaymentServiceGetDuePaymentProcedure)
}

func (UnimplementedPaymentServiceHandler) ListPayments(context.Context, *connect.Request[api.ListPaymentsRequest]) (*connect.Response[api.ListPaymentsResponse], error) {
	return nil, unimplemented(PaymentServiceListPaymentsProcedure)
}


// PayoutServiceName is the fully-qualified name of the PayoutService.
const PayoutServiceName = Package + ".PayoutService"

const (
	PayoutServiceGetCurrentPayoutProcedure = "/" + PayoutServiceName + "/GetCurrentPayout"
	PayoutServiceTriggerPayoutProcedure    = "/" + PayoutServiceName + "/TriggerPayout"
	PayoutServiceApprovePayoutProcedure    = "/" + PayoutServiceName + "/ApprovePayout"
	PayoutServiceExecutePayoutProcedure    = "/" + PayoutServiceName + "/ExecutePayout"
)

// PayoutServiceHandler creates, approves and executes round payouts.
type PayoutServiceHandler interface {
	GetCurrentPayout(context.Context, *connect.Request[api.GetCurrentPayoutRequest]) (*connect.Response[api.GetCurrentPayoutResponse], error)
	TriggerPayout(context.Context, *connect.Request[api.TriggerPayoutRequest]) (*connect.Response[api.TriggerPayoutResponse], error)
	ApprovePayout(context.Context, *connect.Request[api.ApprovePayoutRequest]) (*connect.Response[api.ApprovePayoutResponse], error)
	ExecutePayout(context.Context, *connect.Request[api.ExecutePayoutRequest]) (*connect.Response[api.ExecutePayoutResponse], error)
}

// NewPayoutServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewPayoutServiceHandler(svc PayoutServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	getCurrentPayout := connect.NewUnaryHandler(PayoutServiceGetCurrentPayoutProcedure, svc.GetCurrentPayout, opts...)
	triggerPayout := connect.NewUnaryHandler(PayoutServiceTriggerPayoutProcedure, svc.TriggerPayout, opts...)
	approvePayout := connect.NewUnaryHandler(PayoutServiceApprovePayoutProcedure, svc.ApprovePayout, opts...)
	executePayout := connect.NewUnaryHandler(PayoutServiceExecutePayoutProcedure, svc.ExecutePayout, opts...)
	return "/" + PayoutServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case PayoutServiceGetCurrentPayoutProcedure:
			getCurrentPayout.ServeHTTP(w, r)
		case PayoutServiceTriggerPayoutProcedure:
			triggerPayout.ServeHTTP(w, r)
		case PayoutServiceApprovePayoutProcedure:
			approvePayout.ServeHTTP(w, r)
		case PayoutServiceExecutePayoutProcedure:
			executePayout.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// PayoutServiceClient is a client for the PayoutService.
type PayoutServiceClient interface {
	GetCurrentPayout(context.Context, *connect.Request[api.GetCurrentPayoutRequest]) (*connect.Response[api.GetCurrentPayoutResponse], error)
	TriggerPayout(context.Context, *connect.Request[api.TriggerPayoutRequest]) (*connect.Response[api.TriggerPayoutResponse], error)
	ApprovePayout(context.Context, *connect.Request[api.ApprovePayoutRequest]) (*connect.Response[api.ApprovePayoutResponse], error)
	ExecutePayout(context.Context, *connect.Request[api.ExecutePayoutRequest]) (*connect.Response[api.ExecutePayoutResponse], error)
}

// NewPayoutServiceClient constructs a client for the PayoutService. baseURL is the
// server root, e.g. http://localhost:8080.
func NewPayoutServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) PayoutServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &payoutServiceClient{
		getCurrentPayout: connect.NewClient[api.GetCurrentPayoutRequest, api.GetCurrentPayoutResponse](httpClient, baseURL+PayoutServiceGetCurrentPayoutProcedure, opts...),
		triggerPayout:    connect.NewClient[api.TriggerPayoutRequest, api.TriggerPayoutResponse](httpClient, baseURL+PayoutServiceTriggerPayoutProcedure, opts...),
		approvePayout:    connect.NewClient[api.ApprovePayoutRequest, api.ApprovePayoutResponse](httpClient, baseURL+PayoutServiceApprovePayoutProcedure, opts...),
		executePayout:    connect.NewClient[api.ExecutePayoutRequest, api.ExecutePayoutResponse](httpClient, baseURL+PayoutServiceExecutePayoutProcedure, opts...),
	}
}

type payoutServiceClient struct {
	getCurrentPayout *connect.Client[api.GetCurrentPayoutRequest, api.GetCurrentPayoutResponse]
	triggerPayout    *connect.Client[api.TriggerPayoutRequest, api.TriggerPayoutResponse]
	approvePayout    *connect.Client[api.ApprovePayoutRequest, api.ApprovePayoutResponse]
	executePayout    *connect.Client[api.ExecutePayoutRequest, api.ExecutePayoutResponse]
}

func (c *payoutServiceClient) GetCurrentPayout(ctx context.Context, req *connect.Request[api.GetCurrentPayoutRequest]) (*connect.Response[api.GetCurrentPayoutResponse], error) {
	return c.getCurrentPayout.CallUnary(ctx, req)
}

func (c *payoutServiceClient) TriggerPayout(ctx context.Context, req *connect.Request[api.TriggerPayoutRequest]) (*connect.Response[api.TriggerPayoutResponse], error) {
	return c.triggerPayout.CallUnary(ctx, req)
}

func (c *payoutServiceClient) ApprovePayout(ctx context.Context, req *connect.Request[api.ApprovePayoutRequest]) (*connect.Response[api.ApprovePayoutResponse], error) {
	return c.approvePayout.CallUnary(ctx, req)
}

func (c *payoutServiceClient) ExecutePayout(ctx context.Context, req *connect.Request[api.ExecutePayoutRequest]) (*connect.Response[api.ExecutePayoutResponse], error) {
	return c.executePayout.CallUnary(ctx, req)
}

// UnimplementedPayoutServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedPayoutServiceHandler struct{}

func (UnimplementedPayoutServiceHandler) GetCurrentPayout(context.Context, *connect.Request[api.GetCurrentPayoutRequest]) (*connect.Response[api.GetCurrentPayoutResponse], error) {
	return nil, unimplemented(PayoutServiceGetCurrentPayoutProcedure)
}

func (UnimplementedPayoutServiceHandler) TriggerPayout(context.Context, *connect.Request[api.TriggerPayoutRequest]) (*connect.Response[api.TriggerPayoutResponse], error) {
	return nil, unimplemented(PayoutServiceTriggerPayoutProcedure)
}

func (UnimplementedPayoutServiceHandler) ApprovePayout(context.Context, *connect.Request[api.ApprovePayoutRequest]) (*connect.Response[api.ApprovePayoutResponse], error) {
	return nil, unimplemented(PayoutServiceApprovePayoutProcedure)
}

func (UnimplementedPayoutServiceHandler) ExecutePayout(context.Context, *connect.Request[api.ExecutePayoutRequest]) (*connect.Response[api.ExecutePayoutResponse], error) {
	return nil, unimplemented(PayoutServiceExecutePayoutProcedure)
}


// NotificationServiceName is the fully-qualified name of the NotificationService.
const NotificationServiceName = Package + ".NotificationService"

const (
	NotificationServiceListNotificationsProcedure     = "/" + NotificationServiceName + "/ListNotifications"
	NotificationServiceMarkNotificationsReadProcedure = "/" + NotificationServiceName + "/MarkNotificationsRead"
)

// NotificationServiceHandler serves the in-app inbox.
type NotificationServiceHandler interface {
	ListNotifications(context.Context, *connect.Request[api.ListNotificationsRequest]) (*connect.Response[api.ListNotificationsResponse], error)
	MarkNotificationsRead(context.Context, *connect.Request[api.MarkNotificationsReadRequest]) (*connect.Response[api.MarkNotificationsReadResponse], error)
}

// NewNotificationServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewNotificationServiceHandler(svc NotificationServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	listNotifications := connect.NewUnaryHandler(NotificationServiceListNotificationsProcedure, svc.ListNotifications, opts...)
	markNotificationsRead := connect.NewUnaryHandler(NotificationServiceMarkNotificationsReadProcedure, svc.MarkNotificationsRead, opts...)
	return "/" + NotificationServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case NotificationServiceListNotificationsProcedure:
			listNotifications.ServeHTTP(w, r)
		case NotificationServiceMarkNotificationsReadProcedure:
			markNotificationsRead.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// NotificationServiceClient is a client for the NotificationService.
type NotificationServiceClient interface {
	ListNotifications(context.Context, *connect.Request[api.ListNotificationsRequest]) (*connect.Response[api.ListNotificationsResponse], error)
	MarkNotificationsRead(context.Context, *connect.Request[api.MarkNotificationsReadRequest]) (*connect.Response[api.MarkNotificationsReadResponse], error)
}

// NewNotificationServiceClient constructs a client for the NotificationService. baseURL is the
// server root, e.g. http://localhost:8080.
func NewNotificationServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) NotificationServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &notificationServiceClient{
		listNotifications:     connect.NewClient[api.ListNotificationsRequest, api.ListNotificationsResponse](httpClient, baseURL+NotificationServiceListNotificationsProcedure, opts...),
		markNotificationsRead: connect.NewClient[api.MarkNotificationsReadRequest, api.MarkNotificationsReadResponse](httpClient, baseURL+NotificationServiceMarkNotificationsReadProcedure, opts...),
	}
}

type notificationServiceClient struct {
	listNotifications     *connect.Client[api.ListNotificationsRequest, api.ListNotificationsResponse]
	markNotificationsRead *connect.Client[api.MarkNotificationsReadRequest, api.MarkNotificationsReadResponse]
}

func (c *notificationServiceClient) ListNotifications(ctx context.Context, req *connect.Request[api.ListNotificationsRequest]) (*connect.Response[api.ListNotificationsResponse], error) {
	return c.listNotifications.CallUnary(ctx, req)
}

func (c *notificationServiceClient) MarkNotificationsRead(ctx context.Context, req *connect.Request[api.MarkNotificationsReadRequest]) (*connect.Response[api.MarkNotificationsReadResponse], error) {
	return c.markNotificationsRead.CallUnary(ctx, req)
}

// UnimplementedNotificationServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedNotificationServiceHandler struct{}

func (UnimplementedNotificationServiceHandler) ListNotifications(context.Context, *connect.Request[api.ListNotificationsRequest]) (*connect.Response[api.ListNotificationsResponse], error) {
	return nil, unimplemented(NotificationServiceListNotificationsProcedure)
}

func (UnimplementedNotificationServiceHandler) MarkNotificationsRead(context.Context, *connect.Request[api.MarkNotificationsReadRequest]) (*connect.Response[api.MarkNotificationsReadResponse], error) {
	return nil, unimplemented(NotificationServiceMarkNotificationsReadProcedure)
}
