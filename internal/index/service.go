package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/windschord/context-mcp-sub001/internal/chunk"
	"github.com/windschord/context-mcp-sub001/internal/comment"
	"github.com/windschord/context-mcp-sub001/internal/docs"
	"github.com/windschord/context-mcp-sub001/internal/embed"
	"github.com/windschord/context-mcp-sub001/internal/errkit"
	"github.com/windschord/context-mcp-sub001/internal/lang"
	"github.com/windschord/context-mcp-sub001/internal/scanner"
	"github.com/windschord/context-mcp-sub001/internal/store"
	"github.com/windschord/context-mcp-sub001/internal/symbol"
)

// DefaultCollectionName is the vector-store collection indexed chunks are
// upserted into, per spec §6.
const DefaultCollectionName = "code_vectors"

// embedBatchSize bounds how many chunks are embedded per Embedder call, so
// a single huge project doesn't hold thousands of vectors in flight at once.
const embedBatchSize = 64

// defaultEmbedderConcurrency is how many embed batches run concurrently
// when EmbedderConcurrency is left zero, per spec §5's "embedder pool
// sized to the embedder's concurrency budget".
const defaultEmbedderConcurrency = 4

// saveBM25Locked persists bm25 to bm25Path under an exclusive cross-process
// file lock, so a CLI index run and a resident server's file watcher never
// interleave writes to the same on-disk index.
func saveBM25Locked(bm25 store.BM25Index, bm25Path string) error {
	lock := newFileLock(bm25Path)
	if err := lock.Lock(); err != nil {
		return errkit.Wrap(errkit.KindInternal, err, "lock bm25 index")
	}
	defer lock.Unlock()

	if err := bm25.Save(bm25Path); err != nil {
		return errkit.Wrap(errkit.KindInternal, err, "save bm25 index")
	}
	return nil
}

// metadataSetter is implemented by BM25Index backends (NativeBM25Index)
// that support the filter side-channel; backends that don't (BleveBM25Index)
// are used without per-document metadata filtering.
type metadataSetter interface {
	SetMetadata(id string, metadata map[string]string)
}

// trackedProject holds a project's in-memory lifecycle state and last stats.
type trackedProject struct {
	mu       sync.Mutex
	state    State
	stats    Stats
	bm25     store.BM25Index
	bm25Path string
}

// Service is the IndexingService capability, per spec §4.12. Its fields are
// the concrete implementations of the core's capability interfaces; the
// zero value is not usable, construct via New.
type Service struct {
	Vector              store.VectorStore
	Embedder            embed.Embedder
	Metadata            store.MetadataStore
	Scanner             *scanner.Scanner
	CollectionName      string
	WorkerCount         int
	EmbedderConcurrency int

	// Observer, if set, receives per-phase progress notifications
	// alongside whatever ProgressFunc a caller passes to IndexProject.
	Observer Observer

	mu       sync.Mutex
	projects map[string]*trackedProject
}

func (s *Service) observer() Observer {
	if s.Observer == nil {
		return noopObserver{}
	}
	return s.Observer
}

// New builds a Service with the given capabilities wired in. CollectionName
// defaults to DefaultCollectionName, WorkerCount to runtime.NumCPU(), and
// EmbedderConcurrency to config.DefaultEmbedderConcurrency, when left zero.
func New(vector store.VectorStore, embedder embed.Embedder, metadata store.MetadataStore, sc *scanner.Scanner) *Service {
	return &Service{
		Vector:              vector,
		Embedder:            embedder,
		Metadata:            metadata,
		Scanner:             sc,
		CollectionName:      DefaultCollectionName,
		WorkerCount:         runtime.NumCPU(),
		EmbedderConcurrency: defaultEmbedderConcurrency,
		projects:            make(map[string]*trackedProject),
	}
}

func (s *Service) collectionName() string {
	if s.CollectionName == "" {
		return DefaultCollectionName
	}
	return s.CollectionName
}

func (s *Service) workerCount() int {
	if s.WorkerCount <= 0 {
		return runtime.NumCPU()
	}
	return s.WorkerCount
}

func (s *Service) embedderConcurrency() int {
	if s.EmbedderConcurrency <= 0 {
		return defaultEmbedderConcurrency
	}
	return s.EmbedderConcurrency
}

// tracked returns (creating if absent) the in-memory state for projectID.
func (s *Service) tracked(projectID string) *trackedProject {
	s.mu.Lock()
	defer s.mu.Unlock()
	tp, ok := s.projects[projectID]
	if !ok {
		tp = &trackedProject{state: StateIdle}
		s.projects[projectID] = tp
	}
	return tp
}

// fileOutcome is one code file's parse/chunk result, kept around so the
// Markdown pass can score DocCodeLinker matches against it.
type fileOutcome struct {
	path    string
	source  []byte
	symbols []string
	chunks  []*chunk.Chunk
}

// IndexProject runs the full scan -> parse -> embed -> persist pipeline for
// one project, per spec §4.12. Concurrent calls for the same projectId fail
// with errkit.KindAlreadyRunning.
func (s *Service) IndexProject(ctx context.Context, projectID, rootPath string, opts ProjectOptions, progress ProgressFunc) (IndexResult, error) {
	tp := s.tracked(projectID)

	tp.mu.Lock()
	if tp.state == StateIndexing {
		tp.mu.Unlock()
		return IndexResult{}, errkit.New(errkit.KindAlreadyRunning, "project is already indexing").
			WithData("projectId", projectID)
	}
	tp.state = StateIndexing
	tp.mu.Unlock()

	runID := uuid.New().String()
	slog.Info("indexing run started", slog.String("runId", runID), slog.String("projectId", projectID), slog.String("rootPath", rootPath))

	result, stats, err := s.runIndex(ctx, projectID, rootPath, opts, progress)

	tp.mu.Lock()
	if err != nil {
		tp.state = StateError
		stats.Status = StateError
		stats.Errors = append(stats.Errors, err.Error())
	} else {
		tp.state = StateIndexed
		stats.Status = StateIndexed
	}
	stats.LastIndexedAt = time.Now().UTC()
	tp.stats = stats
	tp.mu.Unlock()

	if err != nil {
		slog.Error("indexing run failed", slog.String("runId", runID), slog.String("projectId", projectID), slog.String("error", err.Error()))
		return result, err
	}
	slog.Info("indexing run finished", slog.String("runId", runID), slog.String("projectId", projectID), slog.Int("indexed", result.Indexed), slog.Int("skipped", result.Skipped))
	return result, nil
}

func (s *Service) runIndex(ctx context.Context, projectID, rootPath string, opts ProjectOptions, progress ProgressFunc) (IndexResult, Stats, error) {
	report := func(phase Phase, pct int, msg string) {
		if progress != nil {
			progress(Progress{Phase: phase, Percent: pct, Message: msg})
		}
	}

	dim := s.Embedder.Dimension()
	if err := s.Vector.CreateCollection(ctx, s.collectionName(), dim); err != nil {
		if e, ok := err.(*errkit.Error); !ok || e.Data["reason"] != "CollectionExists" {
			return IndexResult{}, Stats{}, errkit.Wrap(errkit.KindBackendUnavailable, err, "ensure vector collection")
		}
	}

	bm25, bm25Path, err := FileBM25Factory(rootPath, projectID)
	if err != nil {
		return IndexResult{}, Stats{}, errkit.Wrap(errkit.KindInternal, err, "open bm25 index")
	}

	tp := s.tracked(projectID)
	tp.mu.Lock()
	tp.bm25 = bm25
	tp.bm25Path = bm25Path
	tp.mu.Unlock()

	// Phase 1: scan.
	report(PhaseScan, 0, "scanning project")
	events, err := s.Scanner.Scan(scanner.Options{
		RootDir:            rootPath,
		ExcludePatterns:    opts.ExcludePatterns,
		Extensions:         opts.Extensions,
		RespectIgnoreFiles: true,
	})
	if err != nil {
		return IndexResult{}, Stats{}, errkit.Wrap(errkit.KindInvalidParams, err, "scan project")
	}

	var files []*scanner.FileInfo
	for ev := range events {
		if ev.Kind == scanner.EventFileScanned && ev.File != nil {
			files = append(files, ev.File)
		}
	}
	report(PhaseScan, 20, fmt.Sprintf("found %d files", len(files)))
	s.observer().OnScanProgress(len(files), len(files))

	var codeFiles, mdFiles []*scanner.FileInfo
	var skipped int
	for _, f := range files {
		switch {
		case lang.IsDocumentation(lang.Detect(f.Path)):
			mdFiles = append(mdFiles, f)
		case lang.IsSupported(f.Path):
			codeFiles = append(codeFiles, f)
		default:
			skipped++
		}
	}

	// Phase 2: parse, extract, chunk code files concurrently.
	outcomes, fileErrors := s.parseCodeFiles(ctx, projectID, codeFiles, func(done, total int) {
		pct := 20
		if total > 0 {
			pct = 20 + done*40/total
		}
		report(PhaseParse, pct, fmt.Sprintf("parsed %d/%d files", done, total))
		s.observer().OnParseProgress(done, total)
	})

	// Markdown files run after codeFiles so DocCodeLinker has the full
	// code-file set to score against.
	mdOutcomes, mdErrors := s.parseMarkdownFiles(projectID, rootPath, mdFiles, outcomes)
	fileErrors = append(fileErrors, mdErrors...)
	outcomes = append(outcomes, mdOutcomes...)
	report(PhaseParse, 60, "parsing complete")

	var allChunks []*chunk.Chunk
	var totalSymbols int
	fileRecords := make([]*store.FileRecord, 0, len(outcomes))
	now := time.Now().UTC()
	for _, o := range outcomes {
		allChunks = append(allChunks, o.chunks...)
		totalSymbols += len(o.symbols)
		chunkIDs := make([]string, len(o.chunks))
		fingerprints := make(map[string]string, len(o.chunks))
		for i, c := range o.chunks {
			chunkIDs[i] = c.ID
			fingerprints[c.ID] = chunk.Fingerprint(c)
		}
		fileRecords = append(fileRecords, &store.FileRecord{
			ProjectID:    projectID,
			Path:         o.path,
			Language:     string(lang.Detect(o.path)),
			ModTime:      now,
			ChunkIDs:     chunkIDs,
			Fingerprints: fingerprints,
		})
	}

	// Phase 3: embed.
	report(PhaseEmbed, 60, fmt.Sprintf("embedding %d chunks", len(allChunks)))
	vectors, err := s.embedChunks(ctx, allChunks, func(done, total int) {
		pct := 60
		if total > 0 {
			pct = 60 + done*30/total
		}
		report(PhaseEmbed, pct, fmt.Sprintf("embedded %d/%d chunks", done, total))
		s.observer().OnEmbedProgress(done, total)
	})
	if err != nil {
		if errkit.KindOf(err) == errkit.KindCancelled {
			return IndexResult{}, Stats{}, err
		}
		return IndexResult{}, Stats{}, errkit.Wrap(errkit.KindBackendUnavailable, err, "embed chunks")
	}

	// Phase 4: persist, one file at a time. Per spec §5, a chunk's vector
	// upsert happens before its BM25 posting update, and cancellation
	// rolls back only the file whose persist was in flight: a shadow copy of
	// bm25 is taken before each file and restored, and that file's upserted
	// vector ids are deleted, if ctx is cancelled partway through it. Files
	// already fully persisted before cancellation stay committed.
	report(PhasePersist, 90, "persisting index")
	s.observer().OnPersistProgress(0, len(allChunks))

	offset := 0
	persisted := 0
	for _, o := range outcomes {
		fileChunks := o.chunks
		fileVectors := vectors[offset : offset+len(fileChunks)]
		offset += len(fileChunks)

		if cerr := ctx.Err(); cerr != nil {
			return IndexResult{}, Stats{}, errkit.Wrap(errkit.KindCancelled, cerr, "indexing run cancelled").WithData("projectId", projectID)
		}

		snap, err := newBM25Snapshot(bm25)
		if err != nil {
			return IndexResult{}, Stats{}, errkit.Wrap(errkit.KindInternal, err, "snapshot bm25 index before persisting file")
		}

		upserted, persistErr := s.persistFileChunks(ctx, bm25, fileChunks, fileVectors)
		if persistErr != nil {
			if errkit.KindOf(persistErr) == errkit.KindCancelled {
				if len(upserted) > 0 {
					_ = s.Vector.Delete(context.Background(), s.collectionName(), upserted)
				}
				_ = snap.restore(bm25)
			}
			snap.discard()
			return IndexResult{}, Stats{}, persistErr
		}
		snap.discard()

		persisted += len(fileChunks)
		s.observer().OnPersistProgress(persisted, len(allChunks))
	}

	if err := saveBM25Locked(bm25, bm25Path); err != nil {
		return IndexResult{}, Stats{}, err
	}

	if err := s.Metadata.SaveProject(ctx, &store.Project{
		ProjectID:     projectID,
		RootPath:      rootPath,
		Status:        string(StateIndexed),
		LastIndexedAt: now,
	}); err != nil {
		return IndexResult{}, Stats{}, errkit.Wrap(errkit.KindInternal, err, "save project metadata")
	}
	for _, fr := range fileRecords {
		if err := s.Metadata.SaveFile(ctx, fr); err != nil {
			return IndexResult{}, Stats{}, errkit.Wrap(errkit.KindInternal, err, "save file metadata")
		}
	}

	report(PhasePersist, 100, "indexing complete")
	s.observer().OnPersistProgress(len(allChunks), len(allChunks))

	vecStats, _ := s.Vector.GetStats(ctx, s.collectionName())
	stats := Stats{
		TotalFiles:     len(files),
		IndexedFiles:   len(outcomes),
		TotalSymbols:   totalSymbols,
		TotalVectors:   vecStats.VectorCount,
		TotalDocuments: len(mdFiles),
		IndexSize:      vecStats.IndexSize,
		Errors:         fileErrors,
	}
	return IndexResult{Indexed: len(outcomes), Skipped: skipped, Errors: fileErrors}, stats, nil
}

// parseCodeFiles parses, extracts, and chunks codeFiles using an errgroup
// bounded by s.workerCount(), per spec §5's file-parse pool rule. Per-file
// failures are recorded and do not abort the pass or cancel the group.
func (s *Service) parseCodeFiles(ctx context.Context, projectID string, files []*scanner.FileInfo, onProgress func(done, total int)) ([]fileOutcome, []string) {
	var mu sync.Mutex
	var outcomes []fileOutcome
	var errs []string
	var done int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workerCount())
	for _, f := range files {
		f := f
		g.Go(func() error {
			// A file not yet started when the run is cancelled is skipped
			// outright rather than parsed and discarded; parsing makes no
			// durable writes, so nothing needs rolling back here.
			if gctx.Err() != nil {
				mu.Lock()
				done++
				if onProgress != nil {
					onProgress(done, len(files))
				}
				mu.Unlock()
				return nil
			}

			outcome, err := s.processCodeFile(gctx, projectID, f)

			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", f.Path, err))
			} else {
				outcomes = append(outcomes, outcome)
			}
			if onProgress != nil {
				onProgress(done, len(files))
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes, errs
}

func (s *Service) processCodeFile(ctx context.Context, projectID string, f *scanner.FileInfo) (fileOutcome, error) {
	source, err := os.ReadFile(f.AbsPath)
	if err != nil {
		return fileOutcome{}, err
	}

	language := lang.Detect(f.Path)
	parser := lang.NewParser()
	defer parser.Close()

	tree, err := parser.Parse(ctx, source, language)
	if err != nil {
		return fileOutcome{}, err
	}

	symResult, err := symbol.Extract(tree, source)
	if err != nil {
		return fileOutcome{}, err
	}

	refs := make([]comment.SymbolRef, 0, len(symResult.Symbols))
	names := make([]string, 0, len(symResult.Symbols))
	for _, sym := range symResult.Symbols {
		refs = append(refs, comment.SymbolRef{Name: sym.Name, StartLine: sym.Location.StartLine})
		names = append(names, sym.Name)
	}
	commentResult, err := comment.Extract(tree, source, refs)
	if err != nil {
		return fileOutcome{}, err
	}

	chunks := chunk.Build(f.Path, source, language, symResult.Symbols, chunk.Options{ProjectID: projectID})
	enrichChunksWithComments(chunks, commentResult.Comments)

	return fileOutcome{path: f.Path, source: source, symbols: names, chunks: chunks}, nil
}

// enrichChunksWithComments prepends a symbol-anchored chunk's associated
// doc comment to its text, so the embedded and indexed content includes the
// documentation a reader would see immediately above the declaration.
func enrichChunksWithComments(chunks []*chunk.Chunk, comments []*comment.Comment) {
	bySymbol := make(map[string]*comment.Comment)
	for _, c := range comments {
		if c.Type == comment.DocComment && c.AssociatedSymbol != "" {
			bySymbol[c.AssociatedSymbol] = c
		}
	}
	for _, c := range chunks {
		if c.Metadata.SymbolName == "" {
			continue
		}
		doc, ok := bySymbol[c.Metadata.SymbolName]
		if !ok {
			continue
		}
		c.Text = doc.Content + "\n" + c.Text
	}
}

// parseMarkdownFiles parses Markdown files, chunks them, and scores
// DocCodeLinker matches against the already-processed code files.
func (s *Service) parseMarkdownFiles(projectID, rootPath string, files []*scanner.FileInfo, codeOutcomes []fileOutcome) ([]fileOutcome, []string) {
	if len(files) == 0 {
		return nil, nil
	}

	codeFiles := make([]docs.CodeFile, len(codeOutcomes))
	for i, o := range codeOutcomes {
		codeFiles[i] = docs.CodeFile{Path: o.path, Source: o.source, Symbols: o.symbols}
	}

	var outcomes []fileOutcome
	var errs []string
	for _, f := range files {
		source, err := os.ReadFile(f.AbsPath)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", f.Path, err))
			continue
		}

		chunks := chunk.Build(f.Path, source, lang.Markdown, nil, chunk.Options{ProjectID: projectID})

		doc, err := docs.Parse(source)
		if err == nil {
			matches := docs.CalculateRelatedScore(doc, f.Path, rootPath, codeFiles)
			related := make([]string, 0, len(matches))
			for _, m := range matches {
				related = append(related, m.FilePath)
				if len(related) >= 3 {
					break
				}
			}
			for _, c := range chunks {
				c.Metadata.RelatedFiles = related
			}
		}

		outcomes = append(outcomes, fileOutcome{path: f.Path, source: source, chunks: chunks})
	}
	return outcomes, errs
}

// embedChunks embeds chunks in embedBatchSize-sized batches, running up to
// s.embedderConcurrency() batches at once, per spec §5's embedder pool
// sized to the embedder's concurrency budget. Batch results are written
// into pre-sized slots so the returned order matches chunks regardless of
// which batch finishes first.
func (s *Service) embedChunks(ctx context.Context, chunks []*chunk.Chunk, onProgress func(done, total int)) ([]store.Vector, error) {
	out := make([]store.Vector, len(chunks))
	var mu sync.Mutex
	var done int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.embedderConcurrency())

	for start := 0; start < len(chunks); start += embedBatchSize {
		start := start
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		g.Go(func() error {
			batch := chunks[start:end]
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}
			vecs, err := embed.EmbedBatch(gctx, s.Embedder, texts)
			if err != nil {
				return err
			}
			for i, c := range batch {
				out[start+i] = store.Vector{ID: c.ID, Values: vecs[i], Metadata: chunkMetadataMap(c)}
			}
			mu.Lock()
			done += len(batch)
			if onProgress != nil {
				onProgress(done, len(chunks))
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// persistFileChunks upserts one file's vectors and BM25 postings, checking
// ctx before each chunk's BM25 write so a cancellation mid-file stops
// without touching the remaining chunks. It returns the vector ids it
// upserted so the caller can roll them back if it returns a cancelled error.
func (s *Service) persistFileChunks(ctx context.Context, bm25 store.BM25Index, chunks []*chunk.Chunk, vecs []store.Vector) ([]string, error) {
	if len(vecs) > 0 {
		if err := s.Vector.Upsert(ctx, s.collectionName(), vecs); err != nil {
			return nil, errkit.Wrap(errkit.KindBackendUnavailable, err, "upsert vectors")
		}
	}
	upserted := make([]string, len(vecs))
	for i, v := range vecs {
		upserted[i] = v.ID
	}

	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return upserted, errkit.Wrap(errkit.KindCancelled, err, "indexing run cancelled mid-file")
		}
		if err := bm25.Upsert(ctx, c.ID, c.Tokens); err != nil {
			return upserted, errkit.Wrap(errkit.KindInternal, err, "upsert bm25 posting")
		}
		if ms, ok := bm25.(metadataSetter); ok {
			ms.SetMetadata(c.ID, chunkMetadataMap(c))
		}
	}
	return upserted, nil
}

func chunkMetadataMap(c *chunk.Chunk) map[string]string {
	return map[string]string{
		"projectId":  c.Metadata.ProjectID,
		"language":   c.Metadata.Language,
		"path":       c.Metadata.Path,
		"lineStart":  strconv.Itoa(c.Metadata.LineStart),
		"lineEnd":    strconv.Itoa(c.Metadata.LineEnd),
		"symbolName": c.Metadata.SymbolName,
		"symbolType": c.Metadata.SymbolType,
	}
}

// ProjectBM25 returns projectID's BM25Index, opening it from disk if this
// Service instance hasn't indexed the project since process start. Callers
// that construct a search.Engine need direct access to the per-project BM25
// index alongside the shared Vector store.
func (s *Service) ProjectBM25(projectID, rootPath string) (store.BM25Index, error) {
	tp := s.tracked(projectID)
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if tp.bm25 != nil {
		return tp.bm25, nil
	}
	bm25, bm25Path, err := FileBM25Factory(rootPath, projectID)
	if err != nil {
		return nil, errkit.Wrap(errkit.KindInternal, err, "open bm25 index")
	}
	tp.bm25, tp.bm25Path = bm25, bm25Path
	return bm25, nil
}

// GetIndexStats returns projectID's last-recorded stats.
func (s *Service) GetIndexStats(projectID string) (Stats, error) {
	s.mu.Lock()
	tp, ok := s.projects[projectID]
	s.mu.Unlock()
	if !ok {
		return Stats{}, errkit.New(errkit.KindNotFound, "project not indexed").WithData("projectId", projectID)
	}
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return tp.stats, nil
}

// ProjectIDs returns every project this Service instance is currently
// tracking in memory, in no particular order.
func (s *Service) ProjectIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.projects))
	for id := range s.projects {
		ids = append(ids, id)
	}
	return ids
}

// GetAllIndexStats returns stats for every project this Service instance
// has indexed since process start.
func (s *Service) GetAllIndexStats() map[string]Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Stats, len(s.projects))
	for id, tp := range s.projects {
		tp.mu.Lock()
		out[id] = tp.stats
		tp.mu.Unlock()
	}
	return out
}

// ClearIndex removes projectID's vector collection, BM25 index, and
// metadata, resetting it to StateIdle.
func (s *Service) ClearIndex(ctx context.Context, projectID string) error {
	tp := s.tracked(projectID)
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if err := s.Vector.DeleteCollection(ctx, s.collectionName()); err != nil && errkit.KindOf(err) != errkit.KindNotFound {
		return errkit.Wrap(errkit.KindBackendUnavailable, err, "delete vector collection")
	}
	if tp.bm25Path != "" {
		if err := os.Remove(tp.bm25Path); err != nil && !os.IsNotExist(err) {
			return errkit.Wrap(errkit.KindInternal, err, "remove bm25 index file")
		}
	}
	if err := s.Metadata.DeleteProject(ctx, projectID); err != nil && errkit.KindOf(err) != errkit.KindNotFound {
		return errkit.Wrap(errkit.KindInternal, err, "delete project metadata")
	}
	tp.state = StateIdle
	tp.stats = Stats{}
	return nil
}

// ClearAllIndexes clears every project this Service instance is tracking.
func (s *Service) ClearAllIndexes(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.projects))
	for id := range s.projects {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		if err := s.ClearIndex(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// DeleteFile removes one file's chunks from the vector store, BM25 index,
// and metadata store.
func (s *Service) DeleteFile(ctx context.Context, projectID, rootPath, path string) error {
	tp := s.tracked(projectID)
	tp.mu.Lock()
	bm25 := tp.bm25
	bm25Path := tp.bm25Path
	tp.mu.Unlock()
	if bm25 == nil {
		var err error
		bm25, bm25Path, err = FileBM25Factory(rootPath, projectID)
		if err != nil {
			return errkit.Wrap(errkit.KindInternal, err, "open bm25 index")
		}
	}

	fr, err := s.Metadata.GetFile(ctx, projectID, path)
	if err != nil {
		return err
	}

	if len(fr.ChunkIDs) > 0 {
		if err := s.Vector.Delete(ctx, s.collectionName(), fr.ChunkIDs); err != nil {
			return errkit.Wrap(errkit.KindBackendUnavailable, err, "delete vectors")
		}
		for _, id := range fr.ChunkIDs {
			if err := bm25.Delete(ctx, id); err != nil {
				return errkit.Wrap(errkit.KindInternal, err, "delete bm25 posting")
			}
		}
		if err := saveBM25Locked(bm25, bm25Path); err != nil {
			return err
		}
	}

	return s.Metadata.DeleteFile(ctx, projectID, path)
}

// UpdateFile re-indexes a single file, per spec §4.12's updateFile
// operation. It re-parses and re-chunks the file, then compares each new
// chunk's chunk.Fingerprint against the fingerprint recorded for that chunk
// id on the prior pass: a chunk whose id and content are both unchanged is
// left untouched in the vector store and BM25 index rather than re-embedded
// and re-upserted. Chunk ids that existed before but no longer do (the
// file shrank or a symbol moved) are deleted from both.
func (s *Service) UpdateFile(ctx context.Context, projectID, rootPath, path string) error {
	tp := s.tracked(projectID)
	tp.mu.Lock()
	bm25 := tp.bm25
	bm25Path := tp.bm25Path
	tp.mu.Unlock()
	if bm25 == nil {
		var err error
		bm25, bm25Path, err = FileBM25Factory(rootPath, projectID)
		if err != nil {
			return errkit.Wrap(errkit.KindInternal, err, "open bm25 index")
		}
		tp.mu.Lock()
		tp.bm25, tp.bm25Path = bm25, bm25Path
		tp.mu.Unlock()
	}

	var priorChunkIDs []string
	priorFingerprints := map[string]string{}
	if prior, err := s.Metadata.GetFile(ctx, projectID, path); err == nil {
		priorChunkIDs = prior.ChunkIDs
		if prior.Fingerprints != nil {
			priorFingerprints = prior.Fingerprints
		}
	} else if errkit.KindOf(err) != errkit.KindNotFound {
		return err
	}

	outcome, err := s.processCodeFile(ctx, projectID, &scanner.FileInfo{Path: path, AbsPath: filepath.Join(rootPath, path)})
	if err != nil {
		return errkit.Wrap(errkit.KindParseError, err, "re-index file")
	}

	newChunkIDs := make(map[string]bool, len(outcome.chunks))
	fingerprints := make(map[string]string, len(outcome.chunks))
	var changed []*chunk.Chunk
	for _, c := range outcome.chunks {
		fp := chunk.Fingerprint(c)
		fingerprints[c.ID] = fp
		newChunkIDs[c.ID] = true
		if prev, ok := priorFingerprints[c.ID]; !ok || prev != fp {
			changed = append(changed, c)
		}
	}

	var stale []string
	for _, id := range priorChunkIDs {
		if !newChunkIDs[id] {
			stale = append(stale, id)
		}
	}

	var bm25Mutated bool
	if len(stale) > 0 {
		if err := s.Vector.Delete(ctx, s.collectionName(), stale); err != nil {
			return errkit.Wrap(errkit.KindBackendUnavailable, err, "delete stale vectors")
		}
		for _, id := range stale {
			_ = bm25.Delete(ctx, id)
		}
		bm25Mutated = true
	}

	if len(changed) > 0 {
		vectors, err := s.embedChunks(ctx, changed, nil)
		if err != nil {
			if errkit.KindOf(err) == errkit.KindCancelled {
				return err
			}
			return errkit.Wrap(errkit.KindBackendUnavailable, err, "embed file chunks")
		}
		if len(vectors) > 0 {
			if err := s.Vector.Upsert(ctx, s.collectionName(), vectors); err != nil {
				return errkit.Wrap(errkit.KindBackendUnavailable, err, "upsert file vectors")
			}
		}
		for _, c := range changed {
			if err := bm25.Upsert(ctx, c.ID, c.Tokens); err != nil {
				return errkit.Wrap(errkit.KindInternal, err, "upsert bm25 posting")
			}
			if ms, ok := bm25.(metadataSetter); ok {
				ms.SetMetadata(c.ID, chunkMetadataMap(c))
			}
		}
		bm25Mutated = true
	}

	if bm25Mutated {
		if err := saveBM25Locked(bm25, bm25Path); err != nil {
			return err
		}
	}

	chunkIDs := make([]string, len(outcome.chunks))
	for i, c := range outcome.chunks {
		chunkIDs[i] = c.ID
	}
	return s.Metadata.SaveFile(ctx, &store.FileRecord{
		ProjectID:    projectID,
		Path:         path,
		Language:     string(lang.Detect(path)),
		ModTime:      time.Now().UTC(),
		ChunkIDs:     chunkIDs,
		Fingerprints: fingerprints,
	})
}
