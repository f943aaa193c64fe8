package library_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"soundcheck/internal/library"
	"soundcheck/internal/testsupport"
)

func sampleTrack(fingerprint string, kind library.Kind) *library.Track {
	return &library.Track{
		Fingerprint:     fingerprint,
		Title:           "Warehouse Anthem",
		Artist:          "Karo",
		Kind:            kind,
		SourceURL:       "https://youtu.be/abc123def45",
		DurationSeconds: 351.2,
		SampleRate:      44100,
		Channels:        2,
		Format:          "opus",
		Bitrate:         131072,
	}
}

func sampleFeatures(trackID int64) *library.Features {
	return &library.Features{
		TrackID:             trackID,
		BPM:                 128.2,
		BPMConfidence:       0.84,
		KeyIndex:            9,
		KeyMode:             "minor",
		KeyName:             "A minor",
		KeyConfidence:       0.71,
		Camelot:             "8A",
		IntegratedLUFS:      -8.4,
		LoudnessRange:       5.2,
		TruePeakDB:          -0.3,
		SamplePeakDB:        -0.5,
		RMSDB:               -11.8,
		CrestDB:             11.5,
		DCOffset:            0.0002,
		ZeroCrossRate:       0.091,
		SpectralCentroidHz:  2840.5,
		SpectralRolloffHz:   9120.0,
		SpectralBandwidthHz: 3310.7,
		SpectralFlatness:    0.21,
		SpectralFluxMean:    0.036,
		StereoCorrelation:   0.64,
		StereoWidth:         0.52,
		MidSideRatioDB:      6.8,
		Chroma:              []float64{0.9, 0.1, 0.2, 0.1, 0.3, 0.2, 0.1, 0.6, 0.1, 0.8, 0.1, 0.2},
		BandEnergies:        map[string]float64{"bass": -12.1, "mid": -18.4, "air": -32.0},
		Signature:           []uint32{0x1a2b3c, 0x4d5e6f, 0x708192},
	}
}

func TestSaveTrackUpsertsByFingerprint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLibrary(t, cfg)

	ctx := context.Background()
	track := sampleTrack("yt:abc123def45", library.KindReference)
	if err := store.SaveTrack(ctx, track); err != nil {
		t.Fatalf("SaveTrack: %v", err)
	}
	if track.ID == 0 {
		t.Fatal("expected ID assigned")
	}

	again := sampleTrack("yt:abc123def45", library.KindReference)
	again.Title = "Warehouse Anthem (Remaster)"
	if err := store.SaveTrack(ctx, again); err != nil {
		t.Fatalf("SaveTrack upsert: %v", err)
	}
	if again.ID != track.ID {
		t.Fatalf("expected same ID on upsert, got %d and %d", track.ID, again.ID)
	}

	stored, err := store.TrackByFingerprint(ctx, "yt:abc123def45")
	if err != nil {
		t.Fatalf("TrackByFingerprint: %v", err)
	}
	if stored == nil || stored.Title != "Warehouse Anthem (Remaster)" {
		t.Fatalf("expected updated title, got %#v", stored)
	}

	count, err := store.TrackCount(ctx, "")
	if err != nil {
		t.Fatalf("TrackCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one track after upsert, got %d", count)
	}
}

func TestSaveTrackRequiresFingerprint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLibrary(t, cfg)

	track := sampleTrack("  ", library.KindCandidate)
	track.Fingerprint = "  "
	if err := store.SaveTrack(context.Background(), track); err == nil {
		t.Fatal("expected error for missing fingerprint")
	}
}

func TestListTracksFiltersByKindAndSet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLibrary(t, cfg)

	ctx := context.Background()
	ref1 := sampleTrack("yt:ref00000001", library.KindReference)
	ref2 := sampleTrack("yt:ref00000002", library.KindReference)
	cand := sampleTrack("file:/demos/one.wav", library.KindCandidate)
	for _, track := range []*library.Track{ref1, ref2, cand} {
		if err := store.SaveTrack(ctx, track); err != nil {
			t.Fatalf("SaveTrack: %v", err)
		}
	}

	set, err := store.CreateSet(ctx, "warehouse", "peak time techno", "techno")
	if err != nil {
		t.Fatalf("CreateSet: %v", err)
	}
	if err := store.AddTrackToSet(ctx, set.ID, ref1.ID); err != nil {
		t.Fatalf("AddTrackToSet: %v", err)
	}

	refs, err := store.ListTracks(ctx, library.KindReference, "", 0)
	if err != nil {
		t.Fatalf("ListTracks by kind: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 reference tracks, got %d", len(refs))
	}

	members, err := store.ListTracks(ctx, "", "warehouse", 0)
	if err != nil {
		t.Fatalf("ListTracks by set: %v", err)
	}
	if len(members) != 1 || members[0].ID != ref1.ID {
		t.Fatalf("expected only set member, got %d tracks", len(members))
	}

	limited, err := store.ListTracks(ctx, "", "", 2)
	if err != nil {
		t.Fatalf("ListTracks limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected limit applied, got %d tracks", len(limited))
	}
}

func TestRemoveTrackCascades(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLibrary(t, cfg)

	ctx := context.Background()
	track := sampleTrack("yt:cascade0001", library.KindReference)
	if err := store.SaveTrack(ctx, track); err != nil {
		t.Fatalf("SaveTrack: %v", err)
	}
	if err := store.SaveFeatures(ctx, sampleFeatures(track.ID)); err != nil {
		t.Fatalf("SaveFeatures: %v", err)
	}
	set, err := store.CreateSet(ctx, "warehouse", "", "")
	if err != nil {
		t.Fatalf("CreateSet: %v", err)
	}
	if err := store.AddTrackToSet(ctx, set.ID, track.ID); err != nil {
		t.Fatalf("AddTrackToSet: %v", err)
	}

	if err := store.RemoveTrack(ctx, track.ID); err != nil {
		t.Fatalf("RemoveTrack: %v", err)
	}

	features, err := store.FeaturesByTrack(ctx, track.ID)
	if err != nil {
		t.Fatalf("FeaturesByTrack: %v", err)
	}
	if features != nil {
		t.Fatal("expected features removed with track")
	}
	count, err := store.SetTrackCount(ctx, set.ID)
	if err != nil {
		t.Fatalf("SetTrackCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected membership removed, got %d", count)
	}
}

func TestSaveFeaturesRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLibrary(t, cfg)

	ctx := context.Background()
	track := sampleTrack("yt:features001", library.KindReference)
	if err := store.SaveTrack(ctx, track); err != nil {
		t.Fatalf("SaveTrack: %v", err)
	}

	original := sampleFeatures(track.ID)
	if err := store.SaveFeatures(ctx, original); err != nil {
		t.Fatalf("SaveFeatures: %v", err)
	}
	if original.SchemaVersion != library.FeatureSchemaVersion {
		t.Fatalf("expected schema version stamped, got %d", original.SchemaVersion)
	}

	stored, err := store.FeaturesByTrack(ctx, track.ID)
	if err != nil {
		t.Fatalf("FeaturesByTrack: %v", err)
	}
	if stored == nil {
		t.Fatal("expected stored features")
	}
	if stored.BPM != original.BPM || stored.IntegratedLUFS != original.IntegratedLUFS {
		t.Fatalf("scalar mismatch: bpm %f lufs %f", stored.BPM, stored.IntegratedLUFS)
	}
	if stored.KeyName != "A minor" || stored.Camelot != "8A" {
		t.Fatalf("key mismatch: %q %q", stored.KeyName, stored.Camelot)
	}
	if len(stored.Chroma) != 12 || stored.Chroma[0] != 0.9 {
		t.Fatalf("chroma mismatch: %v", stored.Chroma)
	}
	if stored.BandEnergies["bass"] != -12.1 {
		t.Fatalf("band energies mismatch: %v", stored.BandEnergies)
	}
	if len(stored.Signature) != 3 || stored.Signature[0] != 0x1a2b3c {
		t.Fatalf("signature mismatch: %v", stored.Signature)
	}

	// Upsert replaces in place.
	original.BPM = 129.0
	if err := store.SaveFeatures(ctx, original); err != nil {
		t.Fatalf("SaveFeatures upsert: %v", err)
	}
	stored, err = store.FeaturesByTrack(ctx, track.ID)
	if err != nil {
		t.Fatalf("FeaturesByTrack after upsert: %v", err)
	}
	if stored.BPM != 129.0 {
		t.Fatalf("expected updated BPM, got %f", stored.BPM)
	}
}

func TestFeaturesByTrackIgnoresStaleSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLibrary(t, cfg)

	ctx := context.Background()
	track := sampleTrack("yt:stale000001", library.KindReference)
	if err := store.SaveTrack(ctx, track); err != nil {
		t.Fatalf("SaveTrack: %v", err)
	}
	if err := store.SaveFeatures(ctx, sampleFeatures(track.ID)); err != nil {
		t.Fatalf("SaveFeatures: %v", err)
	}

	db, err := sql.Open("sqlite", cfg.LibraryDatabasePath())
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := db.Exec("UPDATE features SET schema_version = 0 WHERE track_id = ?", track.ID); err != nil {
		t.Fatalf("downgrade schema version: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close raw db: %v", err)
	}

	features, err := store.FeaturesByTrack(ctx, track.ID)
	if err != nil {
		t.Fatalf("FeaturesByTrack: %v", err)
	}
	if features != nil {
		t.Fatal("expected stale-schema features to be treated as missing")
	}
}

func TestDeleteSetKeepsTracks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLibrary(t, cfg)

	ctx := context.Background()
	track := sampleTrack("yt:keep0000001", library.KindReference)
	if err := store.SaveTrack(ctx, track); err != nil {
		t.Fatalf("SaveTrack: %v", err)
	}
	set, err := store.CreateSet(ctx, "warehouse", "", "")
	if err != nil {
		t.Fatalf("CreateSet: %v", err)
	}
	if err := store.AddTrackToSet(ctx, set.ID, track.ID); err != nil {
		t.Fatalf("AddTrackToSet: %v", err)
	}

	if err := store.DeleteSet(ctx, set.ID); err != nil {
		t.Fatalf("DeleteSet: %v", err)
	}

	gone, err := store.SetByName(ctx, "warehouse")
	if err != nil {
		t.Fatalf("SetByName: %v", err)
	}
	if gone != nil {
		t.Fatal("expected set removed")
	}
	kept, err := store.TrackByID(ctx, track.ID)
	if err != nil {
		t.Fatalf("TrackByID: %v", err)
	}
	if kept == nil {
		t.Fatal("expected track to survive set deletion")
	}
}

func TestCreateSetIsIdempotentByName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLibrary(t, cfg)

	ctx := context.Background()
	first, err := store.CreateSet(ctx, "warehouse", "desc", "techno")
	if err != nil {
		t.Fatalf("CreateSet: %v", err)
	}
	second, err := store.CreateSet(ctx, "warehouse", "other", "house")
	if err != nil {
		t.Fatalf("CreateSet repeat: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same set returned, got %d and %d", first.ID, second.ID)
	}
	if second.Description != "desc" {
		t.Fatalf("expected original description kept, got %q", second.Description)
	}
}

func TestSaveProfileAndLatest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLibrary(t, cfg)

	ctx := context.Background()
	set, err := store.CreateSet(ctx, "warehouse", "", "")
	if err != nil {
		t.Fatalf("CreateSet: %v", err)
	}

	older := &library.ProfileRecord{
		SetID:      set.ID,
		BuiltAt:    time.Now().Add(-1 * time.Hour).UTC(),
		TrackCount: 8,
		Payload:    `{"version":1}`,
	}
	if err := store.SaveProfile(ctx, older); err != nil {
		t.Fatalf("SaveProfile older: %v", err)
	}
	newer := &library.ProfileRecord{
		SetID:      set.ID,
		BuiltAt:    time.Now().UTC(),
		TrackCount: 9,
		Payload:    `{"version":2}`,
	}
	if err := store.SaveProfile(ctx, newer); err != nil {
		t.Fatalf("SaveProfile newer: %v", err)
	}

	latest, err := store.LatestProfile(ctx, set.ID)
	if err != nil {
		t.Fatalf("LatestProfile: %v", err)
	}
	if latest == nil || latest.TrackCount != 9 {
		t.Fatalf("expected newest snapshot, got %#v", latest)
	}

	count, err := store.ProfileCount(ctx, set.ID)
	if err != nil {
		t.Fatalf("ProfileCount: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected both snapshots kept, got %d", count)
	}
}

func TestFeaturesForSetSkipsUnanalyzedMembers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLibrary(t, cfg)

	ctx := context.Background()
	analyzed := sampleTrack("yt:forset00001", library.KindReference)
	pending := sampleTrack("yt:forset00002", library.KindReference)
	for _, track := range []*library.Track{analyzed, pending} {
		if err := store.SaveTrack(ctx, track); err != nil {
			t.Fatalf("SaveTrack: %v", err)
		}
	}
	if err := store.SaveFeatures(ctx, sampleFeatures(analyzed.ID)); err != nil {
		t.Fatalf("SaveFeatures: %v", err)
	}

	set, err := store.CreateSet(ctx, "warehouse", "", "")
	if err != nil {
		t.Fatalf("CreateSet: %v", err)
	}
	for _, track := range []*library.Track{analyzed, pending} {
		if err := store.AddTrackToSet(ctx, set.ID, track.ID); err != nil {
			t.Fatalf("AddTrackToSet: %v", err)
		}
	}

	features, err := store.FeaturesForSet(ctx, set.ID)
	if err != nil {
		t.Fatalf("FeaturesForSet: %v", err)
	}
	if len(features) != 1 || features[0].TrackID != analyzed.ID {
		t.Fatalf("expected only analyzed member, got %d rows", len(features))
	}
}
