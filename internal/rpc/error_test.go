package rpc

import "testing"

func TestGRPCStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: 0},
		{name: "null", err: Null(), want: 90},
		{name: "not find", err: NotFind("no provider"), want: 91},
		{name: "info", err: Info("timeout"), want: 92},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GRPCStatus(tt.err); got != tt.want {
				t.Errorf("GRPCStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromGRPCStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		isNull  bool
		isFind  bool
	}{
		{name: "null status", status: 90, message: "null value", isNull: true},
		{name: "not find status", status: 91, message: "no provider", isFind: true},
		{name: "other status", status: 92, message: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromGRPCStatus(tt.status, tt.message)
			if IsNull(err) != tt.isNull {
				t.Errorf("IsNull() = %v, want %v", IsNull(err), tt.isNull)
			}
			if IsNotFind(err) != tt.isFind {
				t.Errorf("IsNotFind() = %v, want %v", IsNotFind(err), tt.isFind)
			}
		})
	}
}

func TestAsRPCErrorDefaultsToInfo(t *testing.T) {
	err := AsRPCError(errString("boom"))
	if IsNull(err) || IsNotFind(err) {
		t.Fatalf("expected Info kind, got %v", err)
	}
	if err.Message != "boom" {
		t.Errorf("Message = %q, want %q", err.Message, "boom")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
