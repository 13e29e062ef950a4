package server

import (
	"context"

	attachmentService "anoa.com/attachments/internal/modules/attachment/service"
)

const jobOrphanSweep = "orphan-attachment-sweep"

type orphanSweepJob struct {
	service  attachmentService.AttachmentService
	schedule string
}

func (j *orphanSweepJob) Name() string     { return jobOrphanSweep }
func (j *orphanSweepJob) Schedule() string { return j.schedule }

func (j *orphanSweepJob) Execute(ctx context.Context) error {
	return j.service.CleanupOrphanAttachments(ctx)
}
