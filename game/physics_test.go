package game

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState(t *testing.T) {
	st := newState("alice", "bob", 1234)

	assert.Equal(t, CourtWidth/2, st.Ball.X)
	assert.Equal(t, CourtHeight/2, st.Ball.Y)
	assert.Equal(t, InitialBallSpeed, st.Ball.Speed)
	assert.Contains(t, []float64{-1, 1}, st.Ball.DX)
	assert.Zero(t, st.Ball.DY)
	assert.Equal(t, CourtHeight/2-PaddleHeight/2, st.LeftPaddle.Y)
	assert.Equal(t, CourtHeight/2-PaddleHeight/2, st.RightPaddle.Y)
	assert.True(t, st.GameStarted)
	assert.False(t, st.GameEnded)
	assert.Equal(t, "alice", st.Player1)
	assert.Equal(t, "bob", st.Player2)
	assert.Equal(t, int64(1234), st.LastUpdate)
}

func TestStepBallAdvancesBySpeed(t *testing.T) {
	st := newState("alice", "bob", 0)
	st.Ball.DX = 1
	startX := st.Ball.X

	step(st, PaddleInput{}, PaddleInput{})

	assert.Equal(t, startX+InitialBallSpeed, st.Ball.X)
	assert.Equal(t, CourtHeight/2, st.Ball.Y)
}

func TestStepPaddleMovementAndClamping(t *testing.T) {
	tests := []struct {
		name  string
		start float64
		input PaddleInput
		want  float64
	}{
		{"up moves by one step", 300, PaddleInput{Up: true}, 300 - PaddleStep},
		{"down moves by one step", 300, PaddleInput{Down: true}, 300 + PaddleStep},
		{"both keys cancel out", 300, PaddleInput{Up: true, Down: true}, 300},
		{"clamped at top border", Border + 3, PaddleInput{Up: true}, Border},
		{"clamped at bottom border", CourtHeight - PaddleHeight - Border - 3, PaddleInput{Down: true}, CourtHeight - PaddleHeight - Border},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newState("alice", "bob", 0)
			st.LeftPaddle.Y = tt.start
			step(st, tt.input, PaddleInput{})
			assert.Equal(t, tt.want, st.LeftPaddle.Y)
		})
	}
}

func TestStepWallBounce(t *testing.T) {
	st := newState("alice", "bob", 0)
	st.Ball.X = 400
	st.Ball.Y = BallRadius + 1
	st.Ball.DX = 0
	st.Ball.DY = -1

	step(st, PaddleInput{}, PaddleInput{})

	assert.Equal(t, 1.0, st.Ball.DY, "vertical direction should flip at the top wall")
}

func TestStepPaddleReflection(t *testing.T) {
	t.Run("dead center returns flat", func(t *testing.T) {
		st := newState("alice", "bob", 0)
		center := st.LeftPaddle.Y + PaddleHeight/2
		st.Ball.X = Border + PaddleWidth + BallRadius + InitialBallSpeed
		st.Ball.Y = center
		st.Ball.DX = -1
		st.Ball.DY = 0

		step(st, PaddleInput{}, PaddleInput{})

		assert.Equal(t, 1.0, st.Ball.DX)
		assert.InDelta(t, 0, st.Ball.DY, 1e-9)
	})

	t.Run("top edge returns steep upward angle", func(t *testing.T) {
		st := newState("alice", "bob", 0)
		st.Ball.X = Border + PaddleWidth + BallRadius + InitialBallSpeed
		st.Ball.Y = st.LeftPaddle.Y
		st.Ball.DX = -1
		st.Ball.DY = 0

		step(st, PaddleInput{}, PaddleInput{})

		assert.Equal(t, 1.0, st.Ball.DX)
		assert.InDelta(t, -1.0, st.Ball.DY, 1e-9)
	})
}

func TestReflectionAngleRange(t *testing.T) {
	paddleY := 255.0
	for offset := 0.0; offset <= PaddleHeight; offset += PaddleHeight / 6 {
		angle := reflectionAngle(paddleY+offset, paddleY)
		require.LessOrEqual(t, math.Abs(angle), 1.0)
	}
}

func TestStepScoring(t *testing.T) {
	t.Run("right player scores when ball exits left", func(t *testing.T) {
		st := newState("alice", "bob", 0)
		// keep the paddle out of the ball's path
		st.LeftPaddle.Y = CourtHeight - PaddleHeight - Border
		st.Ball.X = 3
		st.Ball.Y = 100
		st.Ball.DX = -1
		st.Ball.DY = 0

		step(st, PaddleInput{}, PaddleInput{})

		assert.Equal(t, [2]int{0, 1}, st.Score)
		assert.Equal(t, CourtWidth/2, st.Ball.X)
		assert.Equal(t, CourtHeight/2, st.Ball.Y)
		assert.Zero(t, st.Ball.DY)
	})

	t.Run("left player scores when ball exits right", func(t *testing.T) {
		st := newState("alice", "bob", 0)
		st.RightPaddle.Y = CourtHeight - PaddleHeight - Border
		st.Ball.X = CourtWidth - 3
		st.Ball.Y = 100
		st.Ball.DX = 1
		st.Ball.DY = 0

		step(st, PaddleInput{}, PaddleInput{})

		assert.Equal(t, [2]int{1, 0}, st.Score)
		assert.Equal(t, CourtWidth/2, st.Ball.X)
	})
}
