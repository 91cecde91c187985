package azcli_test

import (
	"testing"

	"github.com/CZERTAINLY/azsnap/internal/azcli"
	"github.com/stretchr/testify/require"
)

func TestLookupString(t *testing.T) {
	obj, err := azcli.DecodeObject(`{
  "id": "/subscriptions/s/snap",
  "diskSizeGb": 30,
  "empty": "",
  "nothing": null,
  "storageProfile": {"osDisk": {"managedDisk": {"id": "/disk/1"}}}
}`)
	require.NoError(t, err)

	var testCases = []struct {
		path string
		then string
		ok   bool
	}{
		{"id", "/subscriptions/s/snap", true},
		{"diskSizeGb", "30", true},
		{"storageProfile.osDisk.managedDisk.id", "/disk/1", true},
		{"storageProfile.osDisk", "", false},
		{"storageProfile.missing.id", "", false},
		{"id.nested", "", false},
		{"empty", "", false},
		{"nothing", "", false},
		{"missing", "", false},
	}
	for _, tt := range testCases {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := azcli.LookupString(obj, tt.path)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.then, got)
		})
	}
}

func TestDecodeObject_Errors(t *testing.T) {
	for _, in := range []string{"", "not json", "[1, 2]", "null"} {
		_, err := azcli.DecodeObject(in)
		require.Error(t, err, in)
	}
}

func TestDecodeList(t *testing.T) {
	type vm struct {
		SubscriptionId string
		Name           string
	}
	got, err := azcli.DecodeList[vm](`[{"SubscriptionId": "/subscriptions/a/vm1", "Name": "vm1"}]`)
	require.NoError(t, err)
	require.Equal(t, []vm{{"/subscriptions/a/vm1", "vm1"}}, got)

	_, err = azcli.DecodeList[vm](`{}`)
	require.Error(t, err)
}
