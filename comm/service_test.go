package comm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServiceID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ServiceID
		wantErr bool
	}{
		{name: "full uuid", input: "00001101-0000-1000-8000-00805f9b34fb", want: SerialPortServiceID},
		{name: "upper case", input: "00001101-0000-1000-8000-00805F9B34FB", want: SerialPortServiceID},
		{name: "short form", input: "1101", want: SerialPortServiceID},
		{name: "short form with prefix", input: "0x1101", want: SerialPortServiceID},
		{name: "32 bit form", input: "00001101", want: SerialPortServiceID},
		{name: "custom uuid", input: "185f3df4-3268-4e3f-9fca-d4d5059915bd", want: ServiceID{0x18, 0x5f, 0x3d, 0xf4, 0x32, 0x68, 0x4e, 0x3f, 0x9f, 0xca, 0xd4, 0xd5, 0x05, 0x99, 0x15, 0xbd}},
		{name: "not hex", input: "zzzz", wantErr: true},
		{name: "garbage", input: "serial", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServiceID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServiceID_Name(t *testing.T) {
	assert.Equal(t, "SerialPort", SerialPortServiceID.Name())
	assert.Equal(t, "00001101-0000-1000-8000-00805f9b34fb", SerialPortServiceID.String())

	custom, err := ParseServiceID("185f3df4-3268-4e3f-9fca-d4d5059915bd")
	require.NoError(t, err)
	assert.Equal(t, "185f3df4-3268-4e3f-9fca-d4d5059915bd", custom.Name())
}

func TestParseCacheMode(t *testing.T) {
	mode, err := ParseCacheMode("")
	require.NoError(t, err)
	assert.Equal(t, Cached, mode)

	mode, err = ParseCacheMode("Uncached")
	require.NoError(t, err)
	assert.Equal(t, Uncached, mode)
	assert.Equal(t, "uncached", mode.String())

	_, err = ParseCacheMode("sometimes")
	assert.Error(t, err)
}

func TestFindService(t *testing.T) {
	list := services(serviceA, SerialPortServiceID, serviceB)

	svc, ok := FindService(list, SerialPortServiceID)
	require.True(t, ok)
	assert.Equal(t, list[1], svc)

	_, ok = FindService(services(serviceA, serviceB), SerialPortServiceID)
	assert.False(t, ok)

	_, ok = FindService(nil, SerialPortServiceID)
	assert.False(t, ok)
}

func TestFindService_FirstMatchWins(t *testing.T) {
	list := []Service{
		{ID: SerialPortServiceID, Name: "first"},
		{ID: SerialPortServiceID, Name: "second"},
	}

	svc, ok := FindService(list, SerialPortServiceID)
	require.True(t, ok)
	assert.Equal(t, "first", svc.Name)
}

func TestOpenServiceStream(t *testing.T) {
	t.Run("match opens the second entry", func(t *testing.T) {
		conn := &fakeConn{}
		dir := &fakeDirectory{services: services(serviceA, SerialPortServiceID, serviceB)}
		factory := &fakeFactory{conn: conn}

		stream, ok, err := OpenServiceStream(context.Background(), dir, factory, hc05, SerialPortServiceID, Uncached)

		require.NoError(t, err)
		require.True(t, ok)
		require.NotNil(t, stream)
		require.Len(t, factory.opened, 1)
		assert.Equal(t, SerialPortServiceID, factory.opened[0].ID)
		assert.Equal(t, Uncached, dir.mode)
	})

	t.Run("no match is absent, not an error", func(t *testing.T) {
		dir := &fakeDirectory{services: services(serviceA, serviceB)}
		factory := &fakeFactory{conn: &fakeConn{}}

		stream, ok, err := OpenServiceStream(context.Background(), dir, factory, hc05, SerialPortServiceID, Cached)

		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, stream)
		assert.Empty(t, factory.opened)
	})

	t.Run("directory failure", func(t *testing.T) {
		dir := &fakeDirectory{err: errors.New("org.bluez.Error.DoesNotExist")}
		factory := &fakeFactory{conn: &fakeConn{}}

		_, ok, err := OpenServiceStream(context.Background(), dir, factory, hc05, SerialPortServiceID, Cached)

		require.Error(t, err)
		assert.False(t, ok)
		assert.Contains(t, err.Error(), hc05.Address)
		assert.Empty(t, factory.opened)
	})
}

func TestStaticDirectory(t *testing.T) {
	dir := StaticDirectory{
		Known:    []DeviceHandle{hc05},
		Provides: []ServiceID{SerialPortServiceID},
	}

	devices, err := dir.Devices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []DeviceHandle{hc05}, devices)

	svcs, err := dir.Services(context.Background(), hc05, Cached)
	require.NoError(t, err)
	require.Len(t, svcs, 1)
	assert.Equal(t, Service{ID: SerialPortServiceID, Name: "SerialPort", Device: hc05}, svcs[0])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = dir.Services(ctx, hc05, Cached)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDeviceHandle_String(t *testing.T) {
	assert.Equal(t, "HC-05 (98:D3:31:F5:1A:2B)", hc05.String())
	assert.Equal(t, "98:D3:31:F5:1A:2B", DeviceHandle{Address: "98:D3:31:F5:1A:2B"}.String())
}
