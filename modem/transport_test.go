package modem

import (
	"context"
	"errors"
	"testing"

	"go.bug.st/serial"
	"go.uber.org/mock/gomock"
)

func TestSerialDialerDial(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		dialer  SerialDialer
		ctx     context.Context
		wantMsg string // exact error message, when deterministic
		wantIs  error  // sentinel to match with errors.Is
	}{
		{
			name:    "Empty port name",
			dialer:  SerialDialer{},
			ctx:     context.Background(),
			wantMsg: "modem: serial port name is required",
		},
		{
			name:    "Nil context",
			dialer:  SerialDialer{PortName: "/dev/ttyUSB0"},
			ctx:     nil,
			wantMsg: "modem: context is nil",
		},
		{
			name:   "Canceled context before open",
			dialer: SerialDialer{PortName: "/dev/nonexistent"},
			ctx:    canceled,
			wantIs: context.Canceled,
		},
		{
			name: "Explicit mode on non-existent port",
			dialer: SerialDialer{
				PortName: "/dev/nonexistent",
				Mode: &serial.Mode{
					BaudRate: 115200,
					Parity:   serial.NoParity,
					DataBits: 8,
					StopBits: serial.OneStopBit,
				},
			},
			ctx: context.Background(),
		},
		{
			name:   "Default mode on non-existent port",
			dialer: SerialDialer{PortName: "/dev/nonexistent"},
			ctx:    context.Background(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport, err := tt.dialer.Dial(tt.ctx)

			if err == nil {
				t.Fatal("expected an error")
			}
			if transport != nil {
				t.Error("expected nil transport on error")
			}
			if tt.wantMsg != "" && err.Error() != tt.wantMsg {
				t.Errorf("unexpected error message: %v", err)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("expected %v, got: %v", tt.wantIs, err)
			}
		})
	}
}

func TestGeneratedMocks(t *testing.T) {
	t.Run("MockTransport satisfies Transport", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		var transport Transport = NewMockTransport(ctrl)
		mockTransport := transport.(*MockTransport)

		data := []byte("AT\r\n")
		mockTransport.EXPECT().Write(data).Return(len(data), nil)
		mockTransport.EXPECT().Read(gomock.Any()).Return(4, nil)
		mockTransport.EXPECT().Close().Return(nil)

		if n, err := transport.Write(data); err != nil || n != len(data) {
			t.Errorf("Write = (%d, %v), want (%d, nil)", n, err, len(data))
		}
		buf := make([]byte, 16)
		if n, err := transport.Read(buf); err != nil || n != 4 {
			t.Errorf("Read = (%d, %v), want (4, nil)", n, err)
		}
		if err := transport.Close(); err != nil {
			t.Errorf("unexpected close error: %v", err)
		}
	})

	t.Run("MockDialer satisfies Dialer", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDialer := NewMockDialer(ctrl)
		mockTransport := NewMockTransport(ctrl)
		var _ Dialer = mockDialer

		ctx := context.Background()
		mockDialer.EXPECT().Dial(ctx).Return(mockTransport, nil)

		transport, err := mockDialer.Dial(ctx)
		if err != nil {
			t.Errorf("unexpected dial error: %v", err)
		}
		if transport != mockTransport {
			t.Error("expected mock transport to be returned")
		}
	})

	t.Run("MockDialer propagates dial errors", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDialer := NewMockDialer(ctrl)
		dialErr := errors.New("dial failed")

		ctx := context.Background()
		mockDialer.EXPECT().Dial(ctx).Return(nil, dialErr)

		transport, err := mockDialer.Dial(ctx)
		if !errors.Is(err, dialErr) {
			t.Errorf("expected dial error, got: %v", err)
		}
		if transport != nil {
			t.Error("expected nil transport on error")
		}
	})
}
