package timesync

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerTimeFromPayload(t *testing.T) {
	cases := []struct {
		body string
		want int64
		ok   bool
	}{
		{`{"serverTime":1700000000000}`, 1700000000000, true},
		{`{"serverTime":"1700000000000"}`, 1700000000000, true},
		{`{"code":0,"data":{"serverTime":1700000000001}}`, 1700000000001, true},
		{`{"code":0,"data":1700000000002}`, 1700000000002, true},
		{`{"code":0,"data":"1700000000003"}`, 1700000000003, true},
		{`{"data":1.7000000000045e12}`, 1700000000004, true},
		{`{"serverTime":1,"data":{"serverTime":2}}`, 1, true},
		{`{"serverTime":null,"data":{"serverTime":2}}`, 2, true},
		{`{"serverTime":"soon","data":3}`, 0, false},
		{`{"code":0,"data":{"time":5}}`, 0, false},
		{`{"code":0,"data":[1,2]}`, 0, false},
		{`{"code":0,"data":null}`, 0, false},
		{`{"code":2,"msg":"System error"}`, 0, false},
		{`[1700000000000]`, 0, false},
		{`not json`, 0, false},
	}
	for i, c := range cases {
		t.Run(fmt.Sprintf("cases[%d]", i), func(t *testing.T) {
			got, ok := ServerTimeFromPayload([]byte(c.body))
			assert.Equal(t, c.ok, ok, c.body)
			assert.Equal(t, c.want, got, c.body)
		})
	}
}

func TestServerTimeFromDate(t *testing.T) {
	want := time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC).UnixMilli()

	headers := []string{
		"Tue, 14 Nov 2023 22:13:20 GMT",
		"Tuesday, 14-Nov-23 22:13:20 GMT",
		"Tue Nov 14 22:13:20 2023",
		"Tue, 14 Nov 2023 23:13:20 +0100",
		"Tue, 14 Nov 2023 22:13:20",
		"  Tue, 14 Nov 2023 22:13:20 GMT  ",
	}
	for _, h := range headers {
		t.Run(h, func(t *testing.T) {
			got, err := ServerTimeFromDate(h)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	_, err := ServerTimeFromDate("")
	assert.Error(t, err)
	_, err = ServerTimeFromDate("yesterday")
	assert.Error(t, err)
}
