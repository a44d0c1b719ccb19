package session_store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"diffusion_session_bot/entities"
	"diffusion_session_bot/repositories"
)

func testServerParams() *entities.ServerParams {
	return &entities.ServerParams{
		Steps:     entities.IntRange{Default: 25, Min: 1, Max: 150},
		CfgScale:  entities.FloatRange{Default: 6, Min: 0, Max: 30},
		Seed:      entities.SeedParam{Default: -1},
		Scheduler: entities.StringParam{Default: "euler-a"},
		Width:     entities.IntRange{Default: 512, Min: 64, Max: 2048},
		Height:    entities.IntRange{Default: 512, Min: 64, Max: 2048},
		BatchSize: entities.IntRange{Default: 1, Min: 1, Max: 4},
		Eta:       entities.FloatRange{Default: 0},
		Strength:  entities.FloatRange{Default: 0.5, Min: 0, Max: 1},
		Model:     entities.StringParam{Default: "stable-diffusion-onnx-v1-5"},
		Platform:  entities.StringParam{Default: "amd"},
	}
}

func newStore(t *testing.T, limit int) Store {
	t.Helper()

	store, err := New(Config{
		ServerParams: testServerParams(),
		Limit:        limit,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return store
}

func responseFor(key string) entities.ImageResponse {
	return entities.ImageResponse{
		Outputs: []entities.Output{
			{Key: key, URL: "http://server/output/" + key},
		},
		Size: entities.Size{Width: 512, Height: 512},
	}
}

func loadingFor(key string) entities.LoadingItem {
	return entities.LoadingItem{Response: responseFor(key)}
}

func historyFor(key string) entities.HistoryEntry {
	return entities.HistoryEntry{
		Response:    responseFor(key),
		RetrievedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewRequiresServerParams(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New() should fail without server params")
	}
}

func TestDefaultsDerivedFromServerParams(t *testing.T) {
	store := newStore(t, 0)

	snapshot := store.Snapshot()

	if snapshot.Txt2Img.Params.Steps != 25 {
		t.Errorf("Txt2Img.Params.Steps = %d, want 25", snapshot.Txt2Img.Params.Steps)
	}

	if snapshot.Img2Img.Strength != 0.5 {
		t.Errorf("Img2Img.Strength = %v, want 0.5", snapshot.Img2Img.Strength)
	}

	if snapshot.Model.Model != "stable-diffusion-onnx-v1-5" {
		t.Errorf("Model.Model = %q", snapshot.Model.Model)
	}

	if snapshot.Limit != defaultLimit {
		t.Errorf("Limit = %d, want default %d", snapshot.Limit, defaultLimit)
	}
}

func TestJobLifecycle(t *testing.T) {
	store := newStore(t, 4)

	store.PushLoading(loadingFor("txt2img_0001.png"))

	snapshot := store.Snapshot()
	if len(snapshot.Loading) != 1 {
		t.Fatalf("Loading length = %d, want 1", len(snapshot.Loading))
	}

	if snapshot.Loading[0].Status != nil {
		t.Error("fresh loading item should have nil status")
	}

	err := store.SetReady("txt2img_0001.png", entities.ReadyStatus{Progress: 0.5})
	if err != nil {
		t.Fatalf("SetReady() error: %v", err)
	}

	snapshot = store.Snapshot()
	if snapshot.Loading[0].Status == nil || snapshot.Loading[0].Status.Progress != 0.5 {
		t.Errorf("Status = %+v, want progress 0.5", snapshot.Loading[0].Status)
	}

	store.PushHistory(historyFor("txt2img_0001.png"))

	snapshot = store.Snapshot()
	if len(snapshot.Loading) != 0 {
		t.Errorf("Loading length = %d after archive, want 0", len(snapshot.Loading))
	}

	if len(snapshot.History) != 1 || snapshot.History[0].Response.Key() != "txt2img_0001.png" {
		t.Errorf("History = %+v, want the archived job", snapshot.History)
	}
}

func TestPushLoadingClearsStatus(t *testing.T) {
	store := newStore(t, 4)

	item := loadingFor("out.png")
	item.Status = &entities.ReadyStatus{Ready: true}

	store.PushLoading(item)

	if status := store.Snapshot().Loading[0].Status; status != nil {
		t.Errorf("Status = %+v, want nil on insert", status)
	}
}

func TestSetReadyUnknownKey(t *testing.T) {
	store := newStore(t, 4)

	err := store.SetReady("never-submitted.png", entities.ReadyStatus{Ready: true})

	var notFound *repositories.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("err = %v, want NotFoundError", err)
	}
}

func TestHistoryBound(t *testing.T) {
	store := newStore(t, 2)

	for i := 0; i < 6; i++ {
		store.PushHistory(historyFor(fmt.Sprintf("out_%04d.png", i)))
	}

	snapshot := store.Snapshot()

	want := 2 + historyScrollback
	if len(snapshot.History) != want {
		t.Fatalf("History length = %d, want %d", len(snapshot.History), want)
	}

	// Newest first, oldest evicted.
	if got := snapshot.History[0].Response.Key(); got != "out_0005.png" {
		t.Errorf("History[0] = %q, want out_0005.png", got)
	}

	if got := snapshot.History[want-1].Response.Key(); got != "out_0002.png" {
		t.Errorf("History[%d] = %q, want out_0002.png", want-1, got)
	}
}

func TestSetLimitDoesNotRetroactivelyTruncate(t *testing.T) {
	store := newStore(t, 4)

	for i := 0; i < 6; i++ {
		store.PushHistory(historyFor(fmt.Sprintf("out_%04d.png", i)))
	}

	store.SetLimit(1)

	if got := len(store.Snapshot().History); got != 6 {
		t.Errorf("History length = %d right after SetLimit, want 6", got)
	}

	store.PushHistory(historyFor("out_0006.png"))

	want := 1 + historyScrollback
	if got := len(store.Snapshot().History); got != want {
		t.Errorf("History length = %d after next push, want %d", got, want)
	}
}

func TestKeyExclusivity(t *testing.T) {
	store := newStore(t, 4)

	store.PushLoading(loadingFor("a.png"))
	store.PushLoading(loadingFor("b.png"))
	store.PushHistory(historyFor("a.png"))

	snapshot := store.Snapshot()

	if len(snapshot.Loading) != 1 || snapshot.Loading[0].Response.Key() != "b.png" {
		t.Errorf("Loading = %+v, want only b.png", snapshot.Loading)
	}

	if len(snapshot.History) != 1 || snapshot.History[0].Response.Key() != "a.png" {
		t.Errorf("History = %+v, want only a.png", snapshot.History)
	}
}

func TestRemoveHistoryMatchesFullDescriptor(t *testing.T) {
	store := newStore(t, 4)

	first := historyFor("dup.png")

	second := historyFor("dup.png")
	second.Response.Params.Seed = 42

	store.PushHistory(first)
	store.PushHistory(second)

	store.RemoveHistory(second)

	snapshot := store.Snapshot()
	if len(snapshot.History) != 1 {
		t.Fatalf("History length = %d, want 1", len(snapshot.History))
	}

	if snapshot.History[0].Response.Params.Seed != 0 {
		t.Error("the wrong duplicate was removed")
	}
}

func TestRemoveLoading(t *testing.T) {
	store := newStore(t, 4)

	store.PushLoading(loadingFor("cancelled.png"))
	store.RemoveLoading("cancelled.png")

	if got := len(store.Snapshot().Loading); got != 0 {
		t.Errorf("Loading length = %d, want 0", got)
	}

	// Removing an absent key is a no-op.
	store.RemoveLoading("never-there.png")
}

func TestSliceUpdateAndReset(t *testing.T) {
	store := newStore(t, 4)

	prompt := "a cat"
	steps := 50

	store.SetTxt2Img(entities.ParamsPatch{Prompt: &prompt, Steps: &steps})

	snapshot := store.Snapshot()
	if snapshot.Txt2Img.Params.Prompt != "a cat" || snapshot.Txt2Img.Params.Steps != 50 {
		t.Errorf("Txt2Img.Params = %+v", snapshot.Txt2Img.Params)
	}

	// Absent fields keep their values.
	if snapshot.Txt2Img.Params.CfgScale != 6 {
		t.Errorf("CfgScale = %v, want untouched default 6", snapshot.Txt2Img.Params.CfgScale)
	}

	store.ResetTxt2Img()

	snapshot = store.Snapshot()
	if snapshot.Txt2Img.Params != testServerParams().DefaultParams() {
		t.Errorf("Txt2Img.Params = %+v after reset", snapshot.Txt2Img.Params)
	}
}

func TestSliceUpdatesAreIndependent(t *testing.T) {
	store := newStore(t, 4)

	prompt := "only txt2img"

	store.SetTxt2Img(entities.ParamsPatch{Prompt: &prompt})

	snapshot := store.Snapshot()
	if snapshot.Img2Img.Params.Prompt != "" || snapshot.Inpaint.Params.Prompt != "" {
		t.Error("patch leaked into other slices")
	}
}

func TestSourceSetters(t *testing.T) {
	store := newStore(t, 4)

	store.SetImg2ImgSource("source.png")
	store.SetImg2ImgStrength(0.8)
	store.SetInpaintSource("source.png", "mask.png")
	store.SetUpscaleSource("small.png")
	store.SetBlend([]string{"a.png", "b.png"}, "blend-mask.png")

	snapshot := store.Snapshot()

	if snapshot.Img2Img.Source != "source.png" || snapshot.Img2Img.Strength != 0.8 {
		t.Errorf("Img2Img = %+v", snapshot.Img2Img)
	}

	if snapshot.Inpaint.Mask != "mask.png" {
		t.Errorf("Inpaint.Mask = %q", snapshot.Inpaint.Mask)
	}

	if snapshot.Upscale.Source != "small.png" {
		t.Errorf("Upscale.Source = %q", snapshot.Upscale.Source)
	}

	if len(snapshot.Blend.Sources) != 2 || snapshot.Blend.Mask != "blend-mask.png" {
		t.Errorf("Blend = %+v", snapshot.Blend)
	}
}

func TestResetAllClearsEverySliceButKeepsJobs(t *testing.T) {
	store := newStore(t, 4)

	prompt := "keep me out"

	store.SetTxt2Img(entities.ParamsPatch{Prompt: &prompt})
	store.SetImg2ImgSource("source.png")
	store.SetBlend([]string{"a.png"}, "mask.png")
	store.PushLoading(loadingFor("inflight.png"))
	store.PushHistory(historyFor("done.png"))

	store.ResetAll()

	snapshot := store.Snapshot()

	if snapshot.Txt2Img.Params.Prompt != "" {
		t.Error("txt2img prompt survived reset")
	}

	if snapshot.Img2Img.Source != "" {
		t.Error("img2img source survived reset")
	}

	if snapshot.Blend.Sources != nil {
		t.Error("blend sources survived reset")
	}

	if len(snapshot.Loading) != 1 || len(snapshot.History) != 1 {
		t.Error("reset should not touch the loading and history queues")
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	store := newStore(t, 4)

	store.PushHistory(historyFor("a.png"))

	snapshot := store.Snapshot()
	snapshot.Txt2Img.Params.Prompt = "tampered"
	snapshot.History = append(snapshot.History, historyFor("b.png"))

	fresh := store.Snapshot()

	if fresh.Txt2Img.Params.Prompt == "tampered" || len(fresh.History) != 1 {
		t.Error("mutating a snapshot changed the store")
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	store := newStore(t, 4)

	prompt := "persisted prompt"

	store.SetTxt2Img(entities.ParamsPatch{Prompt: &prompt})
	store.PushHistory(historyFor("persisted.png"))

	saved := store.Snapshot()

	replacement := newStore(t, 4)
	if err := replacement.Restore(saved); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}

	restored := replacement.Snapshot()

	if restored.Txt2Img.Params.Prompt != "persisted prompt" {
		t.Errorf("Prompt = %q after restore", restored.Txt2Img.Params.Prompt)
	}

	if len(restored.History) != 1 || restored.History[0].Response.Key() != "persisted.png" {
		t.Errorf("History = %+v after restore", restored.History)
	}
}

func TestRestoreRejectsVersionMismatch(t *testing.T) {
	store := newStore(t, 4)

	snapshot := store.Snapshot()
	snapshot.Version = entities.SnapshotVersion - 1

	if err := store.Restore(snapshot); err == nil {
		t.Error("Restore() should reject a version mismatch")
	}
}
