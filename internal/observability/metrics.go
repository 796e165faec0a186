package observability

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
	MOrderCompensations      MetricKey = "order_compensations_total"
	MOrderEvents             MetricKey = "order_events_total"
)

// MetricSpec describes how a metric key is exposed: help text and label keys.
type MetricSpec struct {
	Key    MetricKey
	Help   string
	Labels []string
}

// Counters lists every counter the service emits.
var Counters = []MetricSpec{
	{MUsecaseRequests, "Total number of use case invocations.", []string{"use_case", "outcome"}},
	{MHTTPRequests, "Total number of HTTP requests.", []string{"method", "route", "status"}},
	{MExternalRequests, "Total number of calls to external collaborators.", []string{"peer", "endpoint", "outcome"}},
	{MOrderCompensations, "Count of inventory compensations by failing stage.", []string{"stage"}},
	{MOrderEvents, "Count of reported order side-channel events.", []string{"event"}},
}

// Histograms lists every histogram the service emits.
var Histograms = []MetricSpec{
	{MUsecaseDuration, "Duration of use case execution in seconds.", []string{"use_case"}},
	{MHTTPRequestDuration, "Duration of HTTP requests in seconds.", []string{"method", "route", "status"}},
	{MExternalRequestDuration, "Duration of calls to external collaborators in seconds.", []string{"peer", "endpoint"}},
}
