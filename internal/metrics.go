package internal

import "expvar"

var (
	requestsTotal     = expvar.NewMap("hookboard_requests_total")
	signatureFailures = expvar.NewMap("hookboard_signature_failures_total")
	storeErrors       = expvar.NewMap("hookboard_store_errors_total")
	dispatchErrors    = expvar.NewMap("hookboard_dispatch_errors_total")
)

func IncRequest(route string) {
	requestsTotal.Add(route, 1)
}

func IncSignatureFailure(route string) {
	signatureFailures.Add(route, 1)
}

func IncStoreError(table string) {
	storeErrors.Add(table, 1)
}

func IncDispatchError(driver string) {
	dispatchErrors.Add(driver, 1)
}
