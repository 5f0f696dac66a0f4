package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/codebuildervaibhav/lecture-grader/internal/apperr"
	"github.com/codebuildervaibhav/lecture-grader/internal/types"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveStore uploads public files into a Google Drive folder
type DriveStore struct {
	service    *drive.Service
	folderName string
	folderID   string
}

// NewDriveStore creates a Drive-backed object store. The OAuth token must
// already exist on disk; the server never prompts for one.
func NewDriveStore(ctx context.Context, credentialsFile, tokenFile, folderName string) (*DriveStore, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, apperr.Newf(apperr.KindConfiguration, "drive store", "unable to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, apperr.Newf(apperr.KindConfiguration, "drive store", "unable to parse credentials: %w", err)
	}

	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, apperr.Newf(apperr.KindConfiguration, "drive store", "unable to read token file: %w", err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx, tok)))
	if err != nil {
		return nil, apperr.Newf(apperr.KindConfiguration, "drive store", "unable to create Drive service: %w", err)
	}

	ds := &DriveStore{
		service:    srv,
		folderName: folderName,
	}

	if err := ds.ensureFolder(ctx); err != nil {
		return nil, classifyDriveError("ensure folder", err)
	}

	return ds, nil
}

// tokenFromFile retrieves a token from a local file
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// ensureFolder finds or creates the upload folder
func (ds *DriveStore) ensureFolder(ctx context.Context) error {
	query := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", ds.folderName, folderMimeType)

	r, err := ds.service.Files.List().Q(query).Spaces("drive").Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to search for folder: %w", err)
	}

	if len(r.Files) > 0 {
		ds.folderID = r.Files[0].Id
		return nil
	}

	folder := &drive.File{
		Name:     ds.folderName,
		MimeType: folderMimeType,
	}

	file, err := ds.service.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to create folder: %w", err)
	}

	ds.folderID = file.Id
	return nil
}

// Backend implements ObjectStore.
func (ds *DriveStore) Backend() string { return "gdrive" }

// Store implements ObjectStore. Public-read is granted with an anyone/reader
// permission on the new file.
func (ds *DriveStore) Store(ctx context.Context, data []byte, originalName string) (*types.UploadedAsset, error) {
	key := NewObjectKey(originalName)

	file := &drive.File{
		Name:    key,
		Parents: []string{ds.folderID},
	}

	created, err := ds.service.Files.Create(file).Media(bytes.NewReader(data)).Fields("id").Context(ctx).Do()
	if err != nil {
		return nil, classifyDriveError("upload file", err)
	}

	perm := &drive.Permission{Type: "anyone", Role: "reader"}
	if _, err := ds.service.Permissions.Create(created.Id, perm).Context(ctx).Do(); err != nil {
		return nil, classifyDriveError("share file", err)
	}

	return &types.UploadedAsset{
		StorageKey: key,
		PublicURL:  driveDownloadURL(created.Id),
	}, nil
}

func driveDownloadURL(fileID string) string {
	return fmt.Sprintf("https://drive.google.com/uc?export=download&id=%s", fileID)
}

func classifyDriveError(op string, err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && (gErr.Code == http.StatusUnauthorized || gErr.Code == http.StatusForbidden) {
		return apperr.New(apperr.KindStorageUnavailable, "drive "+op, err)
	}

	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) || isNetworkError(err) {
		return apperr.New(apperr.KindStorageUnavailable, "drive "+op, err)
	}

	return apperr.New(apperr.KindStorage, "drive "+op, err)
}
