package rpccontract

const (
	ServiceName = "ventura.v1.ValidationHub"
)

const (
	MethodGetHealth       = "/" + ServiceName + "/GetHealth"
	MethodGetSummary      = "/" + ServiceName + "/GetSummary"
	MethodExportState     = "/" + ServiceName + "/ExportState"
	MethodStartValidation = "/" + ServiceName + "/StartValidation"
	MethodStartSwarm      = "/" + ServiceName + "/StartSwarm"
	MethodGetResult       = "/" + ServiceName + "/GetResult"
	MethodCancelSession   = "/" + ServiceName + "/CancelSession"
	MethodListSessions    = "/" + ServiceName + "/ListSessions"
)

var WriteMethods = map[string]struct{}{
	MethodStartValidation: {},
	MethodStartSwarm:      {},
	MethodCancelSession:   {},
}
