package permissions_test

import (
	"context"
	"testing"

	"github.com/acetime/acetime/internal/errors"
	"github.com/acetime/acetime/internal/permissions"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	stopped bool
}

func (s *fakeStream) Stop() {
	s.stopped = true
}

type fakeAuthorizer struct {
	cameraErr     error
	microphoneErr error
	streams       []*fakeStream
}

func (a *fakeAuthorizer) RequestCamera(_ context.Context) (permissions.Stream, error) {
	if a.cameraErr != nil {
		return nil, a.cameraErr
	}
	stream := &fakeStream{}
	a.streams = append(a.streams, stream)
	return stream, nil
}

func (a *fakeAuthorizer) RequestMicrophone(_ context.Context) (permissions.Stream, error) {
	if a.microphoneErr != nil {
		return nil, a.microphoneErr
	}
	stream := &fakeStream{}
	a.streams = append(a.streams, stream)
	return stream, nil
}

func TestRequest(t *testing.T) {
	t.Parallel()
	denied := errors.New("permission denied")
	tests := []struct {
		name          string
		cameraErr     error
		microphoneErr error
		want          permissions.State
	}{
		{
			name: "both granted",
			want: permissions.State{Camera: permissions.Granted, Microphone: permissions.Granted},
		},
		{
			name:      "camera denied does not block microphone",
			cameraErr: denied,
			want:      permissions.State{Camera: permissions.Denied, Microphone: permissions.Granted},
		},
		{
			name:          "microphone denied",
			microphoneErr: denied,
			want:          permissions.State{Camera: permissions.Granted, Microphone: permissions.Denied},
		},
		{
			name:          "both denied",
			cameraErr:     denied,
			microphoneErr: denied,
			want:          permissions.State{Camera: permissions.Denied, Microphone: permissions.Denied},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			authorizer := &fakeAuthorizer{cameraErr: tt.cameraErr, microphoneErr: tt.microphoneErr}

			state := permissions.Request(context.Background(), authorizer)

			require.Equal(t, tt.want, state)
			require.True(t, state.Determined(), "every outcome combination is determined after Request")
			for _, stream := range authorizer.streams {
				require.True(t, stream.stopped, "acquired streams must be stopped immediately")
			}
		})
	}
}

func TestState_Determined(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		state permissions.State
		want  bool
	}{
		{name: "both unknown", state: permissions.State{}, want: false},
		{
			name:  "camera pending",
			state: permissions.State{Camera: permissions.Unknown, Microphone: permissions.Granted},
			want:  false,
		},
		{
			name:  "microphone pending",
			state: permissions.State{Camera: permissions.Denied, Microphone: permissions.Unknown},
			want:  false,
		},
		{
			name:  "both granted",
			state: permissions.State{Camera: permissions.Granted, Microphone: permissions.Granted},
			want:  true,
		},
		{
			name:  "both denied still counts as determined",
			state: permissions.State{Camera: permissions.Denied, Microphone: permissions.Denied},
			want:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, tt.state.Determined())
		})
	}
}

func TestParseGrant(t *testing.T) {
	t.Parallel()
	for _, grant := range []permissions.Grant{permissions.Unknown, permissions.Granted, permissions.Denied} {
		parsed, err := permissions.ParseGrant(grant.String())
		require.NoError(t, err)
		require.Equal(t, grant, parsed)
	}

	_, err := permissions.ParseGrant("maybe")
	require.ErrorIs(t, err, permissions.ErrUnknownGrant)
}
