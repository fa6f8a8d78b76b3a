package handlers

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"quickchat/config"
	"quickchat/middleware"
	"quickchat/service"
	"quickchat/utils"
)

const maxUploadSize = 50 * 1024 * 1024

type Files struct {
	svc *service.MessageService
}

func NewFiles(svc *service.MessageService) *Files {
	return &Files{svc: svc}
}

// SendFile accepts a multipart upload, stores the file under the upload dir,
// and persists it as a message to the receiver.
func (h *Files) SendFile(c *gin.Context) {
	userID := middleware.GetUserID(c)

	receiverID := c.PostForm("receiverId")
	if receiverID == "" {
		utils.BadRequest(c, "receiverId is required")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequest(c, "no file uploaded")
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		utils.BadRequest(c, "file too large (max 50MB)")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	filename := utils.GenerateUUID() + ext
	uploadPath := filepath.Join(config.Cfg.UploadDir, filename)

	out, err := os.Create(uploadPath)
	if err != nil {
		utils.InternalError(c, "failed to save file")
		return
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		utils.InternalError(c, "failed to save file")
		return
	}

	duration, _ := strconv.Atoi(c.PostForm("duration"))

	msg, err := h.svc.SendFile(userID, receiverID, service.FileMeta{
		URL:      "/files/" + filename,
		MimeType: header.Header.Get("Content-Type"),
		FileType: c.PostForm("fileType"),
		FileName: header.Filename,
		FileSize: header.Size,
		Duration: duration,
	}, c.PostForm("text"))
	if err != nil {
		os.Remove(uploadPath)
		respondServiceError(c, err)
		return
	}

	utils.Success(c, msg)
}

// ServeFile streams a stored upload, refusing anything that escapes the
// upload directory.
func (h *Files) ServeFile(c *gin.Context) {
	filename := c.Param("filename")

	cleanFilename := filepath.Clean(filename)
	if cleanFilename != filepath.Base(cleanFilename) || cleanFilename == "." || cleanFilename == ".." {
		utils.BadRequest(c, "invalid filename")
		return
	}

	filePath := filepath.Join(config.Cfg.UploadDir, cleanFilename)

	absUploadDir, err := filepath.Abs(config.Cfg.UploadDir)
	if err != nil {
		utils.InternalError(c, "server configuration error")
		return
	}
	absFilePath, err := filepath.Abs(filePath)
	if err != nil {
		utils.BadRequest(c, "invalid file path")
		return
	}
	if !strings.HasPrefix(absFilePath, absUploadDir+string(filepath.Separator)) {
		utils.BadRequest(c, "invalid file path")
		return
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		utils.NotFound(c, "file not found")
		return
	}

	c.File(filePath)
}
