package cron

import (
	"OurSpace/internal/job"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManager_RegisterJobs(t *testing.T) {
	sweep := job.NewMediaSweepJob(nil, nil, time.Hour)

	assert.NoError(t, NewCronManager(sweep, "@every 10m").RegisterJobs())
	assert.NoError(t, NewCronManager(sweep, "0 */5 * * * *").RegisterJobs())
	assert.Error(t, NewCronManager(sweep, "not a schedule").RegisterJobs())
}
