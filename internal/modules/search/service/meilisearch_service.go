package search

import (
	"html"
	"strings"

	"anoa.com/attachments/internal/entity"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

const indexAttachments = "attachments"

type MeiliSearchService interface {
	IndexAttachment(attachment *entity.Attachment) error
	DeleteAttachment(id string) error
}

type meiliSearchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
	logger    *zap.Logger
}

func NewMeiliSearchService(client meilisearch.ServiceManager, logger *zap.Logger) MeiliSearchService {
	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
	}
	s.initIndexes()
	return s
}

func (s *meiliSearchService) initIndexes() {
	filterableAttrs := []string{"userId", "parentId", "parentType", "mimetype"}
	filterableInterface := make([]any, len(filterableAttrs))
	for i, v := range filterableAttrs {
		filterableInterface[i] = v
	}
	if _, err := s.client.Index(indexAttachments).UpdateFilterableAttributes(&filterableInterface); err != nil {
		s.logger.Warn("Failed to update attachments filterable attributes", zap.Error(err))
	}

	sortableAttrs := []string{"timestamp", "size"}
	if _, err := s.client.Index(indexAttachments).UpdateSortableAttributes(&sortableAttrs); err != nil {
		s.logger.Warn("Failed to update attachments sortable attributes", zap.Error(err))
	}

	s.logger.Info("Meilisearch indexes initialized")
}

type meiliAttachmentDoc struct {
	ID            string `json:"id"`
	Filename      string `json:"filename"`
	Mimetype      string `json:"mimetype"`
	Size          int64  `json:"size"`
	Timestamp     int64  `json:"timestamp"`
	UserID        string `json:"userId"`
	ParentID      string `json:"parentId"`
	ParentType    string `json:"parentType"`
	ParentSubtype string `json:"parentSubtype"`
}

func (s *meiliSearchService) cleanText(text string) string {
	sanitized := s.sanitizer.Sanitize(text)
	cleanText := html.UnescapeString(sanitized)
	return strings.Join(strings.Fields(cleanText), " ")
}

func (s *meiliSearchService) toDocument(attachment *entity.Attachment) meiliAttachmentDoc {
	return meiliAttachmentDoc{
		ID:            attachment.ID,
		Filename:      s.cleanText(attachment.Filename),
		Mimetype:      attachment.Mimetype,
		Size:          attachment.Size,
		Timestamp:     attachment.Timestamp.Unix(),
		UserID:        attachment.UserID,
		ParentID:      getStringOrEmpty(attachment.ParentID),
		ParentType:    s.cleanText(getStringOrEmpty(attachment.ParentType)),
		ParentSubtype: s.cleanText(getStringOrEmpty(attachment.ParentSubtype)),
	}
}

func (s *meiliSearchService) IndexAttachment(attachment *entity.Attachment) error {
	doc := s.toDocument(attachment)

	task, err := s.client.Index(indexAttachments).AddDocuments([]meiliAttachmentDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	s.logger.Debug("Indexed attachment", zap.String("id", attachment.ID), zap.Int64("task_uid", task.TaskUID))
	return nil
}

func (s *meiliSearchService) DeleteAttachment(id string) error {
	_, err := s.client.Index(indexAttachments).DeleteDocument(id)
	return err
}

func getStringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string {
	return &s
}
