package player

import (
	"sync"
	"time"

	"drifttapes/internal/catalog"
	"drifttapes/pkg/models"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultVolume is the initial output volume
	DefaultVolume = 0.7
	// DefaultTickInterval is how often simulated playback advances
	DefaultTickInterval = 250 * time.Millisecond
	// RestartThreshold is how far into a track PlayPrevious restarts it
	// instead of going back
	RestartThreshold = 3.0

	listenerBuffer = 10
)

// Status is the transport state
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPaused  Status = "paused"
	StatusPlaying Status = "playing"
)

// State is a snapshot of the player. Times are in seconds.
type State struct {
	CurrentTrack    *models.PlayableTrack `json:"currentTrack"`
	Queue           []models.QueuedTrack  `json:"queue"`
	CurrentIndex    int                   `json:"currentIndex"`
	Status          Status                `json:"status"`
	IsPlaying       bool                  `json:"isPlaying"`
	CurrentTime     float64               `json:"currentTime"`
	Duration        float64               `json:"duration"`
	Volume          float64               `json:"volume"`
	IsMuted         bool                  `json:"isMuted"`
	EffectiveVolume float64               `json:"effectiveVolume"`
	IsVisible       bool                  `json:"isVisible"`
	IsExpanded      bool                  `json:"isExpanded"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

// Option configures a Player
type Option func(*Player)

// WithScheduler replaces the real-time tick scheduler
func WithScheduler(s Scheduler) Option {
	return func(p *Player) { p.scheduler = s }
}

// WithTickInterval sets how often elapsed time advances while playing
func WithTickInterval(d time.Duration) Option {
	return func(p *Player) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithVolume sets the initial volume, clamped to [0,1]
func WithVolume(v float64) Option {
	return func(p *Player) { p.state.Volume = clamp(v) }
}

// WithLogger sets the player's logger
func WithLogger(logger *logrus.Logger) Option {
	return func(p *Player) { p.logger = logger }
}

// Player owns a play queue and a simulated transport. All operations are
// total: invalid indices and operations that make no sense in the current
// state are ignored.
type Player struct {
	mutex     sync.Mutex
	state     State
	scheduler Scheduler
	interval  time.Duration
	logger    *logrus.Logger

	stopTick   func()
	generation uint64

	listeners []chan State
	closed    bool
}

// New creates an idle, hidden player
func New(opts ...Option) *Player {
	p := &Player{
		state: State{
			Queue:        []models.QueuedTrack{},
			CurrentIndex: -1,
			Volume:       DefaultVolume,
			UpdatedAt:    time.Now(),
		},
		scheduler: RealScheduler{},
		interval:  DefaultTickInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logrus.StandardLogger()
	}
	return p
}

// Snapshot returns a copy of the current state
func (p *Player) Snapshot() State {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.snapshotLocked()
}

func (p *Player) snapshotLocked() State {
	s := p.state
	s.Queue = make([]models.QueuedTrack, len(p.state.Queue))
	copy(s.Queue, p.state.Queue)
	if p.state.CurrentTrack != nil {
		track := *p.state.CurrentTrack
		s.CurrentTrack = &track
	}

	switch {
	case s.CurrentTrack == nil:
		s.Status = StatusIdle
	case s.IsPlaying:
		s.Status = StatusPlaying
	default:
		s.Status = StatusPaused
	}

	s.EffectiveVolume = s.Volume
	if s.IsMuted {
		s.EffectiveVolume = 0
	}
	return s
}

// PlayTrack plays track immediately. With replaceQueue the queue becomes
// just this track; otherwise the track is appended and becomes current.
func (p *Player) PlayTrack(track models.PlayableTrack, replaceQueue bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if replaceQueue {
		p.state.Queue = []models.QueuedTrack{{PlayableTrack: track, QueueIndex: 0}}
	} else {
		p.state.Queue = append(p.state.Queue, models.QueuedTrack{PlayableTrack: track, QueueIndex: len(p.state.Queue)})
	}

	p.load(len(p.state.Queue) - 1)
	p.startPlaying()
	p.changed()
}

// PlayAlbum replaces the queue with tracks and plays from startIndex. An
// out-of-range start plays from the first track; an empty list is ignored.
func (p *Player) PlayAlbum(tracks []models.PlayableTrack, startIndex int) {
	if len(tracks) == 0 {
		return
	}
	if startIndex < 0 || startIndex >= len(tracks) {
		startIndex = 0
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	queue := make([]models.QueuedTrack, len(tracks))
	for i, track := range tracks {
		queue[i] = models.QueuedTrack{PlayableTrack: track, QueueIndex: i}
	}
	p.state.Queue = queue

	p.load(startIndex)
	p.startPlaying()
	p.changed()
}

// AddToQueue appends track without touching playback. When nothing is
// loaded the track also becomes current and starts playing.
func (p *Player) AddToQueue(track models.PlayableTrack) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.state.Queue = append(p.state.Queue, models.QueuedTrack{PlayableTrack: track, QueueIndex: len(p.state.Queue)})

	if p.state.CurrentIndex == -1 {
		p.load(len(p.state.Queue) - 1)
		p.startPlaying()
	}
	p.changed()
}

// RemoveFromQueue deletes the entry at index. The current pointer keeps
// pointing at the same track when an earlier entry is removed. Removing the
// current entry loads the track that slid into its place, or the previous
// one when it was last; an empty queue returns the player to idle.
func (p *Player) RemoveFromQueue(index int) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if index < 0 || index >= len(p.state.Queue) {
		return
	}

	queue := append(p.state.Queue[:index:index], p.state.Queue[index+1:]...)
	for i := range queue {
		queue[i].QueueIndex = i
	}
	p.state.Queue = queue

	current := p.state.CurrentIndex
	switch {
	case len(queue) == 0:
		p.reset()
	case index < current:
		p.state.CurrentIndex--
	case index == current:
		next := index
		if next >= len(queue) {
			next = len(queue) - 1
		}
		p.load(next)
		if p.state.IsPlaying {
			p.startTick()
		}
	}
	p.changed()
}

// ClearQueue empties the queue and returns to idle
func (p *Player) ClearQueue() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.state.Queue = []models.QueuedTrack{}
	p.reset()
	p.changed()
}

// PlayNext advances to the next queue entry. It does nothing on the last
// entry; the queue does not wrap.
func (p *Player) PlayNext() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.next() {
		p.changed()
	}
}

func (p *Player) next() bool {
	current := p.state.CurrentIndex
	if current < 0 || current >= len(p.state.Queue)-1 {
		return false
	}
	p.load(current + 1)
	p.startPlaying()
	return true
}

// PlayPrevious restarts the current track when more than RestartThreshold
// seconds have elapsed, otherwise moves to the previous entry. On the first
// entry it restarts the track.
func (p *Player) PlayPrevious() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	current := p.state.CurrentIndex
	if current < 0 {
		return
	}

	if p.state.CurrentTime > RestartThreshold || current == 0 {
		p.state.CurrentTime = 0
	} else {
		p.load(current - 1)
		p.startPlaying()
	}
	p.changed()
}

// Seek sets the elapsed time. Range checks are the caller's job.
func (p *Player) Seek(t float64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.state.CurrentTime = t
	p.changed()
}

// SetVolume sets the volume clamped to [0,1] and unmutes
func (p *Player) SetVolume(v float64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.state.Volume = clamp(v)
	p.state.IsMuted = false
	p.changed()
}

// ToggleMute flips mute without changing the stored volume
func (p *Player) ToggleMute() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.state.IsMuted = !p.state.IsMuted
	p.changed()
}

// Play resumes playback of the loaded track. A track paused at its end
// starts over. Without a loaded track it does nothing.
func (p *Player) Play() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.play() {
		p.changed()
	}
}

func (p *Player) play() bool {
	if p.state.CurrentTrack == nil || p.state.IsPlaying {
		return false
	}
	if p.state.Duration > 0 && p.state.CurrentTime >= p.state.Duration {
		p.state.CurrentTime = 0
	}
	p.state.IsPlaying = true
	p.startTick()
	return true
}

// Pause stops playback, keeping the elapsed time
func (p *Player) Pause() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.pause() {
		p.changed()
	}
}

func (p *Player) pause() bool {
	if !p.state.IsPlaying {
		return false
	}
	p.state.IsPlaying = false
	p.cancelTick()
	return true
}

// Toggle flips between playing and paused
func (p *Player) Toggle() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var changed bool
	if p.state.IsPlaying {
		changed = p.pause()
	} else {
		changed = p.play()
	}
	if changed {
		p.changed()
	}
}

// ShowPlayer makes the player visible
func (p *Player) ShowPlayer() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.state.IsVisible = true
	p.changed()
}

// HidePlayer pauses, collapses the queue view and hides the player
func (p *Player) HidePlayer() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.pause()
	p.state.IsVisible = false
	p.state.IsExpanded = false
	p.changed()
}

// ToggleExpand opens or collapses the queue view
func (p *Player) ToggleExpand() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.state.IsExpanded = !p.state.IsExpanded
	p.changed()
}

// Close stops the tick and closes all subscriber channels
func (p *Player) Close() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	p.cancelTick()
	for _, listener := range p.listeners {
		close(listener)
	}
	p.listeners = nil
}

// Subscribe returns a channel receiving a snapshot after every change. A
// subscriber that falls behind is dropped and its channel closed.
func (p *Player) Subscribe() <-chan State {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	ch := make(chan State, listenerBuffer)
	if p.closed {
		close(ch)
		return ch
	}
	p.listeners = append(p.listeners, ch)
	return ch
}

// Unsubscribe removes and closes a subscriber channel
func (p *Player) Unsubscribe(ch <-chan State) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for i, listener := range p.listeners {
		if listener == ch {
			close(listener)
			p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
			break
		}
	}
}

// load makes the queue entry at index current with elapsed time reset.
// Must be called with the lock held.
func (p *Player) load(index int) {
	track := p.state.Queue[index].PlayableTrack
	p.state.CurrentIndex = index
	p.state.CurrentTrack = &track
	p.state.CurrentTime = 0
	p.state.Duration = float64(catalog.ParseDuration(track.Duration))
}

// startPlaying enters the playing state on a freshly loaded track
func (p *Player) startPlaying() {
	p.state.IsPlaying = true
	p.state.IsVisible = true
	p.startTick()
}

// reset returns to idle with whatever queue is present
func (p *Player) reset() {
	p.cancelTick()
	p.state.CurrentIndex = -1
	p.state.CurrentTrack = nil
	p.state.IsPlaying = false
	p.state.CurrentTime = 0
	p.state.Duration = 0
	p.state.IsVisible = false
	p.state.IsExpanded = false
}

// startTick replaces any running tick with a new generation
func (p *Player) startTick() {
	p.cancelTick()
	if p.closed {
		return
	}
	gen := p.generation
	p.stopTick = p.scheduler.Every(p.interval, func() { p.tick(gen) })
}

// cancelTick stops the running tick and invalidates its generation, so a
// callback already in flight is ignored.
func (p *Player) cancelTick() {
	if p.stopTick != nil {
		p.stopTick()
		p.stopTick = nil
	}
	p.generation++
}

func (p *Player) tick(gen uint64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if gen != p.generation || !p.state.IsPlaying {
		return
	}

	p.state.CurrentTime += p.interval.Seconds()
	if p.state.Duration > 0 && p.state.CurrentTime >= p.state.Duration {
		if !p.next() {
			p.state.CurrentTime = p.state.Duration
			p.state.IsPlaying = false
			p.cancelTick()
			p.logger.WithField("track", p.state.CurrentTrack.ID).Debug("Reached end of queue")
		}
	}
	p.changed()
}

// changed stamps the state and notifies subscribers. Must be called with
// the lock held.
func (p *Player) changed() {
	p.state.UpdatedAt = time.Now()
	if len(p.listeners) == 0 {
		return
	}

	snapshot := p.snapshotLocked()
	live := p.listeners[:0]
	for _, listener := range p.listeners {
		select {
		case listener <- snapshot:
			live = append(live, listener)
		default:
			close(listener)
			p.logger.Debug("Dropped slow player subscriber")
		}
	}
	p.listeners = live
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
