package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

// DriveClient archives finished transcripts to a Google Drive folder.
// Optional: the server runs without it when credentials are absent.
type DriveClient struct {
	service    *drive.Service
	folderName string
	folderID   string
}

// NewDriveClient builds a Drive client from an OAuth credentials file and a
// previously saved token. Unlike an interactive CLI there is no browser flow
// here; a missing token is a configuration error.
func NewDriveClient(ctx context.Context, credentialsFile, tokenFile, folderName string) (*DriveClient, error) {
	credentials, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read drive credentials: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(credentials, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("parse drive credentials: %w", err)
	}

	token, err := loadToken(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("load drive token (run the authorization flow first): %w", err)
	}

	service, err := drive.NewService(ctx, option.WithHTTPClient(oauthConfig.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	dc := &DriveClient{service: service, folderName: folderName}
	if err := dc.ensureFolder(); err != nil {
		return nil, err
	}
	return dc, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}
	return token, nil
}

// ensureFolder finds or creates the archive folder.
func (dc *DriveClient) ensureFolder() error {
	query := fmt.Sprintf("name='%s' and mimeType='application/vnd.google-apps.folder' and trashed=false", dc.folderName)
	list, err := dc.service.Files.List().Q(query).Spaces("drive").Fields("files(id, name)").Do()
	if err != nil {
		return fmt.Errorf("search drive folder: %w", err)
	}
	if len(list.Files) > 0 {
		dc.folderID = list.Files[0].Id
		return nil
	}

	folder, err := dc.service.Files.Create(&drive.File{
		Name:     dc.folderName,
		MimeType: "application/vnd.google-apps.folder",
	}).Fields("id").Do()
	if err != nil {
		return fmt.Errorf("create drive folder: %w", err)
	}
	dc.folderID = folder.Id
	log.WithField("folder", dc.folderName).Info("created drive archive folder")
	return nil
}

// Upload pushes the transcript's readable rendering and returns a view link.
func (dc *DriveClient) Upload(ctx context.Context, t *types.Transcript) (string, error) {
	name := fmt.Sprintf("%s_%s.txt", time.Now().Format("20060102_150405"), sanitizeFilename(t.FileName))

	file, err := dc.service.Files.Create(&drive.File{
		Name:    name,
		Parents: []string{dc.folderID},
	}).Media(strings.NewReader(renderText(t))).Fields("id, webViewLink").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive upload: %w", err)
	}

	log.WithFields(log.Fields{"file": name, "id": file.Id}).Info("transcript archived to drive")
	return file.WebViewLink, nil
}
