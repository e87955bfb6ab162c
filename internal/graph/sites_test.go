package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiteLocator(t *testing.T) {
	assert.Equal(t, "contoso.sharepoint.com:/sites/Team%20Docs",
		SiteLocator("contoso.sharepoint.com/", "/Team Docs/"))
}

func TestResolveSite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sites/contoso.sharepoint.com:/sites/eng", r.URL.Path)
		fmt.Fprint(w, `{"id":"contoso.sharepoint.com,guid-1,guid-2","name":"eng","displayName":"Engineering"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	site, err := client.ResolveSite(context.Background(), SiteLocator("contoso.sharepoint.com", "eng"))
	require.NoError(t, err)

	assert.Equal(t, "contoso.sharepoint.com,guid-1,guid-2", site.ID)
	assert.Equal(t, "Engineering", site.DisplayName)
}

func TestResolveSite_MissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"name":"eng"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.ResolveSite(context.Background(), "host:/sites/eng")
	assert.ErrorIs(t, err, ErrNoSiteID)
}

func TestResolveSite_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.ResolveSite(context.Background(), "host:/sites/eng")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestDrives(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sites/site-1/drives", r.URL.Path)
		fmt.Fprint(w, `{"value":[
			{"id":"b!1","name":"Documents","driveType":"documentLibrary","webUrl":"https://c/Shared%20Documents"},
			{"id":"b!2","name":"Archive","driveType":"documentLibrary"}
		]}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	drives, err := client.Drives(context.Background(), "site-1")
	require.NoError(t, err)
	require.Len(t, drives, 2)

	assert.Equal(t, Drive{ID: "b!1", Name: "Documents", DriveType: "documentLibrary", WebURL: "https://c/Shared%20Documents"}, drives[0])
	assert.Equal(t, "Archive", drives[1].Name)
}
