package brightdata

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	batchSize            = 50
	interBatchDelay      = 500 * time.Millisecond
	snapshotPollInterval = 30 * time.Second
	maxSnapshotWait      = 10 * time.Minute
	maxRunningSnapshots  = 99
)

// CollectorOptions tunes CollectProfiles. Zero values use the defaults above;
// tests shrink the intervals.
type CollectorOptions struct {
	PollInterval time.Duration
	MaxWait      time.Duration
}

// CollectProfiles runs the full batch collection flow for a set of profile
// URLs: chunk into trigger batches, wait out account-level snapshot pressure,
// poll every snapshot to completion, download ready ones, and map records
// back by their input URL. Individual snapshot failures drop their batch's
// profiles rather than failing the collection.
func CollectProfiles(ctx context.Context, client Client, urls []string, opts CollectorOptions) (map[string]ProfileRecord, error) {
	if len(urls) == 0 {
		return map[string]ProfileRecord{}, nil
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = snapshotPollInterval
	}
	maxWait := opts.MaxWait
	if maxWait <= 0 {
		maxWait = maxSnapshotWait
	}

	log := zap.L().With(zap.Int("urls", len(urls)))

	// 1. Trigger one snapshot per chunk of 50.
	var snapshotIDs []string
	for start := 0; start < len(urls); start += batchSize {
		end := min(start+batchSize, len(urls))

		inputs := make([]TriggerInput, 0, end-start)
		for _, u := range urls[start:end] {
			inputs = append(inputs, TriggerInput{URL: u})
		}

		// Back off while the account is saturated with running snapshots.
		if err := waitForCapacity(ctx, client, pollInterval); err != nil {
			return nil, err
		}

		id, err := client.TriggerSnapshot(ctx, inputs)
		if err != nil {
			return nil, eris.Wrapf(err, "brightdata: trigger batch %d-%d", start, end)
		}
		snapshotIDs = append(snapshotIDs, id)
		log.Debug("triggered snapshot", zap.String("snapshot_id", id), zap.Int("batch_size", len(inputs)))

		if end < len(urls) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(interBatchDelay):
			}
		}
	}

	// 2. Poll each snapshot to a terminal status, then download ready ones.
	profiles := make(map[string]ProfileRecord)
	for _, id := range snapshotIDs {
		status, err := waitOnSnapshot(ctx, client, id, pollInterval, maxWait)
		if err != nil {
			return nil, err
		}
		if status != "ready" {
			log.Warn("snapshot did not complete, dropping its batch",
				zap.String("snapshot_id", id),
				zap.String("status", status),
			)
			continue
		}

		records, err := client.DownloadSnapshot(ctx, id)
		if err != nil {
			log.Warn("snapshot download failed, dropping its batch",
				zap.String("snapshot_id", id),
				zap.Error(err),
			)
			continue
		}
		for _, r := range records {
			if r.Key() != "" {
				profiles[r.Key()] = r
			}
		}
	}

	log.Info("profile collection complete",
		zap.Int("snapshots", len(snapshotIDs)),
		zap.Int("profiles", len(profiles)),
	)
	return profiles, nil
}

// waitForCapacity blocks while the account has >= maxRunningSnapshots running.
// A failure to count is treated as capacity available.
func waitForCapacity(ctx context.Context, client Client, pollInterval time.Duration) error {
	for {
		running, err := client.RunningSnapshots(ctx)
		if err != nil {
			zap.L().Warn("could not check running snapshots", zap.Error(err))
			return nil
		}
		if running < maxRunningSnapshots {
			return nil
		}
		zap.L().Info("snapshot capacity saturated, waiting",
			zap.Int("running", running),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// waitOnSnapshot polls until the snapshot is "ready" or "failed", or maxWait
// elapses (returned as status "timeout").
func waitOnSnapshot(ctx context.Context, client Client, snapshotID string, pollInterval, maxWait time.Duration) (string, error) {
	deadline := time.Now().Add(maxWait)
	for {
		status, err := client.SnapshotStatus(ctx, snapshotID)
		if err != nil {
			return "", eris.Wrapf(err, "brightdata: poll snapshot %s", snapshotID)
		}
		if status == "ready" || status == "failed" {
			return status, nil
		}
		if time.Now().After(deadline) {
			return "timeout", nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
