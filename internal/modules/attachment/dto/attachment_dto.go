package dto

// FileMeta describes an already uploaded file.
type FileMeta struct {
	Filename string `json:"filename" binding:"required,max=255"`
	Path     string `json:"path" binding:"required"`
	Mimetype string `json:"mimetype" binding:"max=255"`
	Size     int64  `json:"size" binding:"min=0"`
}

type CreateAttachmentRequest struct {
	ParentID      *string   `json:"parentId" binding:"omitempty,max=255"`
	ParentType    *string   `json:"parentType" binding:"omitempty,max=100"`
	ParentSubtype *string   `json:"parentSubtype" binding:"omitempty,max=100"`
	File          *FileMeta `json:"file"`
}
