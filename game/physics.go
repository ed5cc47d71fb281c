package game

import "math/rand"

// newState centers the ball and both paddles. The ball starts moving
// horizontally toward a random side.
func newState(player1, player2 string, now int64) *State {
	return &State{
		Ball: Ball{
			X:     CourtWidth / 2,
			Y:     CourtHeight / 2,
			DX:    randomDirection(),
			DY:    0,
			Speed: InitialBallSpeed,
		},
		LeftPaddle:  Paddle{Y: CourtHeight/2 - PaddleHeight/2},
		RightPaddle: Paddle{Y: CourtHeight/2 - PaddleHeight/2},
		GameStarted: true,
		LastUpdate:  now,
		Player1:     player1,
		Player2:     player2,
	}
}

func randomDirection() float64 {
	if rand.Intn(2) == 0 {
		return -1
	}
	return 1
}

// step advances the simulation by one tick: buffered paddle input, ball
// movement, wall and paddle reflection, and out-of-bounds scoring. Win
// detection is left to the caller.
func step(st *State, left, right PaddleInput) {
	if left.Up {
		st.LeftPaddle.Y = clampPaddle(st.LeftPaddle.Y - PaddleStep)
	}
	if left.Down {
		st.LeftPaddle.Y = clampPaddle(st.LeftPaddle.Y + PaddleStep)
	}
	if right.Up {
		st.RightPaddle.Y = clampPaddle(st.RightPaddle.Y - PaddleStep)
	}
	if right.Down {
		st.RightPaddle.Y = clampPaddle(st.RightPaddle.Y + PaddleStep)
	}

	st.Ball.X += st.Ball.DX * st.Ball.Speed
	st.Ball.Y += st.Ball.DY * st.Ball.Speed

	if st.Ball.Y <= BallRadius || st.Ball.Y >= CourtHeight-BallRadius {
		st.Ball.DY = -st.Ball.DY
	}

	const leftPaddleX = Border
	const rightPaddleX = CourtWidth - PaddleWidth - Border

	if st.Ball.X <= leftPaddleX+PaddleWidth+BallRadius &&
		st.Ball.X >= leftPaddleX-BallRadius &&
		st.Ball.Y >= st.LeftPaddle.Y-BallRadius &&
		st.Ball.Y <= st.LeftPaddle.Y+PaddleHeight+BallRadius {
		st.Ball.DX = -st.Ball.DX
		st.Ball.DY = reflectionAngle(st.Ball.Y, st.LeftPaddle.Y)
	}

	if st.Ball.X >= rightPaddleX-BallRadius &&
		st.Ball.X <= rightPaddleX+PaddleWidth+BallRadius &&
		st.Ball.Y >= st.RightPaddle.Y-BallRadius &&
		st.Ball.Y <= st.RightPaddle.Y+PaddleHeight+BallRadius {
		st.Ball.DX = -st.Ball.DX
		st.Ball.DY = reflectionAngle(st.Ball.Y, st.RightPaddle.Y)
	}

	if st.Ball.X <= 0 {
		st.Score[1]++
		resetBall(st)
	} else if st.Ball.X >= CourtWidth {
		st.Score[0]++
		resetBall(st)
	}
}

func clampPaddle(y float64) float64 {
	if y < Border {
		return Border
	}
	if y > CourtHeight-PaddleHeight-Border {
		return CourtHeight - PaddleHeight - Border
	}
	return y
}

// reflectionAngle maps the impact offset from the paddle center to a
// normalized vertical velocity: dead-center contact returns 0, the paddle
// edges approach ±1.
func reflectionAngle(ballY, paddleY float64) float64 {
	return (ballY - (paddleY + PaddleHeight/2)) / (PaddleHeight / 2)
}

func resetBall(st *State) {
	st.Ball.X = CourtWidth / 2
	st.Ball.Y = CourtHeight / 2
	st.Ball.DX = randomDirection()
	st.Ball.DY = 0
}
