package rpc

import "fmt"

// Protocol identifies one of the three wire protocols this runtime speaks.
type Protocol string

const (
	ProtocolFusen       Protocol = "fusen"
	ProtocolDubbo       Protocol = "dubbo"
	ProtocolSpringCloud Protocol = "springcloud"
)

// CodecType selects which body codec an invocation uses.
type CodecType string

const (
	CodecJSON CodecType = "json"
	CodecGRPC CodecType = "grpc"
)

// ServiceIdentity names one service interface, optionally pinned to a
// version or group for side-by-side deployments.
type ServiceIdentity struct {
	Package   string
	Interface string
	Version   string
	Group     string
}

// String renders the fully-qualified interface name, e.g. "com.example.DemoService".
func (s ServiceIdentity) String() string {
	if s.Package == "" {
		return s.Interface
	}
	return s.Package + "." + s.Interface
}

// Key returns the map key used by the route cache: interface(+version)(+group).
func (s ServiceIdentity) Key() string {
	k := s.String()
	if s.Version != "" {
		k += ":" + s.Version
	}
	if s.Group != "" {
		k += "@" + s.Group
	}
	return k
}

// HandlerKey is the tuple that uniquely identifies a dispatchable endpoint
// within one process: service interface plus method name plus version.
type HandlerKey struct {
	Service ServiceIdentity
	Method  string
}

func (k HandlerKey) String() string {
	s := fmt.Sprintf("%s/%s", k.Service.String(), k.Method)
	if k.Service.Version != "" {
		s += ":" + k.Service.Version
	}
	return s
}
