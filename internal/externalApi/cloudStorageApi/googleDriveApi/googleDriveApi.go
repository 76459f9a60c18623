package googleDriveApi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"time"

	"github.com/KotFed0t/stock_ledger/config"
	"github.com/KotFed0t/stock_ledger/utils"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	shareLinkTemplate = "https://drive.google.com/file/d/%s/view"
	// помечаем свои файлы, чтобы очистка не трогала чужие
	appPropertyKey   = "source"
	appPropertyValue = "stock_ledger_export"
)

type GoogleDriveApi struct {
	srv     *drive.Service
	fileTTL time.Duration
}

func New(ctx context.Context, cfg *config.Config) (*GoogleDriveApi, error) {
	srv, err := drive.NewService(ctx, option.WithCredentialsFile(cfg.GoogleDrive.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("drive.NewService: %w", err)
	}
	return &GoogleDriveApi{srv: srv, fileTTL: cfg.GoogleDrive.FileTTL}, nil
}

// UploadFile uploads the export and returns a link readable by anyone who has it.
func (a *GoogleDriveApi) UploadFile(ctx context.Context, reader io.Reader, filename string) (shareLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.UploadFile"

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))

	fileMeta := &drive.File{
		Name:          filename,
		MimeType:      mime.TypeByExtension(filepath.Ext(filename)),
		AppProperties: map[string]string{appPropertyKey: appPropertyValue},
	}

	uploaded, err := a.srv.Files.
		Create(fileMeta).
		Media(reader). // чанки по 16МБ, сетевые ошибки ретраятся самой библиотекой
		Context(ctx).
		Do()
	if err != nil {
		slog.Error("failed on uploading file to google drive", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	_, err = a.srv.Permissions.
		Create(uploaded.Id, &drive.Permission{Type: "anyone", Role: "reader"}).
		Context(ctx).
		Do()
	if err != nil {
		slog.Error("failed on creating permission for uploaded file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	slog.Debug(op+" completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("fileID", uploaded.Id))

	return fmt.Sprintf(shareLinkTemplate, uploaded.Id), nil
}

// DeleteOldFiles removes exports older than the configured TTL.
func (a *GoogleDriveApi) DeleteOldFiles(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.DeleteOldFiles"
	cutoff := time.Now().Add(-a.fileTTL)

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.Time("cutoff", cutoff))

	query := fmt.Sprintf(
		"appProperties has { key='%s' and value='%s' } and createdTime < '%s' and trashed = false",
		appPropertyKey, appPropertyValue, cutoff.UTC().Format(time.RFC3339),
	)

	var found, deleted int
	err := a.srv.Files.List().
		Q(query).
		Fields("nextPageToken, files(id, createdTime)").
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				found++
				if err := a.srv.Files.Delete(f.Id).Context(ctx).Do(); err != nil {
					slog.Error(
						"failed delete file",
						slog.String("rqID", rqID),
						slog.String("op", op),
						slog.String("err", err.Error()),
						slog.String("fileID", f.Id),
						slog.String("createdTime", f.CreatedTime),
					)
					continue
				}
				deleted++
			}
			return nil
		})
	if err != nil {
		slog.Error("failed on listing files", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Info("delete old exports done", slog.String("rqID", rqID), slog.Int("found", found), slog.Int("deleted", deleted))

	return nil
}
